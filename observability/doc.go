// Package observability provides OpenTelemetry spans and Prometheus metrics
// for agent runs, LLM steps and tool calls.
//
// Spans are created from the tracer passed in options; when none is given the
// global provider is used through otel.Tracer. Metrics register on the
// default Prometheus registry and are safe for concurrent use.
package observability
