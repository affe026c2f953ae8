package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	tracer := tp.Tracer("test")

	ctx, run := StartRun(context.Background(), tracer, "clock", "run-1")
	_, step := StartStep(ctx, tracer, "clock", 1)
	_, call := StartToolCall(ctx, tracer, "convert_time", "c1")
	EndSpan(call, errors.New("boom"))
	EndSpan(step, nil)
	EndSpan(run, nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "tool.call", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "agent.step", spans[1].Name)
	assert.Equal(t, "agent.run", spans[2].Name)
	assert.Equal(t, spans[2].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestTracer_Default(t *testing.T) {
	assert.NotNil(t, Tracer(nil))
}

func TestMetrics(t *testing.T) {
	before := testutil.ToFloat64(toolCallsTotal.WithLabelValues("convert_time", StatusSuccess))
	RecordToolCall("convert_time", StatusSuccess)
	assert.Equal(t, before+1, testutil.ToFloat64(toolCallsTotal.WithLabelValues("convert_time", StatusSuccess)))

	runs := testutil.ToFloat64(runsTotal.WithLabelValues("SUCCEEDED"))
	RecordRun("SUCCEEDED", time.Second)
	assert.Equal(t, runs+1, testutil.ToFloat64(runsTotal.WithLabelValues("SUCCEEDED")))

	tokens := testutil.ToFloat64(tokensTotal)
	RecordTokens(0)
	RecordTokens(12)
	assert.Equal(t, tokens+12, testutil.ToFloat64(tokensTotal))

	steps := testutil.ToFloat64(stepsTotal)
	RecordStep()
	assert.Equal(t, steps+1, testutil.ToFloat64(stepsTotal))
}

func TestMetrics_NotFoundUsesFixedLabel(t *testing.T) {
	unknown := testutil.ToFloat64(toolCallsTotal.WithLabelValues(UnknownTool, StatusNotFound))

	RecordToolCall("hallucinated_tool_1", StatusNotFound)
	RecordToolCall("hallucinated_tool_2", StatusNotFound)

	assert.Equal(t, unknown+2, testutil.ToFloat64(toolCallsTotal.WithLabelValues(UnknownTool, StatusNotFound)))
	assert.Zero(t, testutil.ToFloat64(toolCallsTotal.WithLabelValues("hallucinated_tool_1", StatusNotFound)))
}
