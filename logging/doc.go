// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, flows and the MCP proxy use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter over an existing *slog.Logger
//   - StructuredLogger with component and context attributes
//   - With plus the LogToolCall, LogLLMCall and LogRunExecution helpers,
//     which work on any Logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a, err := agent.New("clock", llm, tools, func(o *agent.Options) { o.Logger = logger })
//
// The interface stays minimal to avoid vendor lock-in while supporting
// structured logging where available.
package logging
