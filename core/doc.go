// Package core provides the foundational domain types and execution contexts
// shared by every other package. It defines:
//
//   - Conversations (append-only message history sent to the LLM each turn)
//   - Messages, tool calls and tool results matched by call identifier
//   - RunContext / ToolContext (scoped execution for runs and tool calls)
//   - StepLimiter and TokenCounter for per-run accounting
//   - The error taxonomy (configuration, tool lookup, tool execution,
//     LLM link and task failure errors)
//
// Concrete agents, flows, providers and MCP plumbing live in their own
// packages and depend on these small types.
package core
