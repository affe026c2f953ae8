package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for the default tracer.
const TracerName = "github.com/hupe1980/mcpagents"

// Attribute keys shared by all spans.
const (
	AttrAgent    = "mcpagents.agent"
	AttrRunID    = "mcpagents.run_id"
	AttrStep     = "mcpagents.step"
	AttrTool     = "mcpagents.tool"
	AttrCallID   = "mcpagents.call_id"
	AttrState    = "mcpagents.state"
	AttrCalls    = "mcpagents.tool_calls"
	AttrProvider = "mcpagents.llm.provider"
)

// Tracer returns t, or the default tracer when t is nil.
func Tracer(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return otel.Tracer(TracerName)
}

// StartRun opens the root span of one agent run.
func StartRun(ctx context.Context, t trace.Tracer, agent, runID string) (context.Context, trace.Span) {
	return Tracer(t).Start(ctx, "agent.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrAgent, agent),
			attribute.String(AttrRunID, runID),
		),
	)
}

// StartStep opens a span around one LLM turn.
func StartStep(ctx context.Context, t trace.Tracer, agent string, step int) (context.Context, trace.Span) {
	return Tracer(t).Start(ctx, "agent.step",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrAgent, agent),
			attribute.Int(AttrStep, step),
		),
	)
}

// StartToolCall opens a span around a single tool invocation.
func StartToolCall(ctx context.Context, t trace.Tracer, toolName, callID string) (context.Context, trace.Span) {
	return Tracer(t).Start(ctx, "tool.call",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrTool, toolName),
			attribute.String(AttrCallID, callID),
		),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
