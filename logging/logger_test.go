package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestStructuredLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("flow").
		WithRun("clock", "run-1").
		WithContext("env", "test")

	l.Info("flow.step.complete", "step", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "flow.step.complete", entry["msg"])
	assert.Equal(t, "flow", entry["component"])
	assert.Equal(t, "clock", entry["agent"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, float64(2), entry["step"])
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestHelpers_StructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	LogToolCall(l, "convert_time", "c1", 5*time.Millisecond, errors.New("boom"))
	LogRunExecution(l, "SUCCEEDED", 3, time.Second, 120, nil)
	LogLLMCall(l, "gpt-4o-mini", 42, time.Millisecond, nil)

	out := buf.String()
	assert.True(t, strings.Contains(out, "tool.call.failed"))
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "agent.run.finished")
	assert.Contains(t, out, "total_tokens=120")
	assert.Contains(t, out, "llm.call.completed")
	assert.Contains(t, out, "token_count=42")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Info("proxy.serving", "tools", 2)
	l.Debug("dropped")

	assert.Contains(t, buf.String(), "proxy.serving tools=2")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestHelpers_SameEventsForEveryLogger(t *testing.T) {
	var structured, adapted bytes.Buffer
	loggers := []Logger{
		NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &structured}),
		NewSlogAdapter(slog.New(slog.NewTextHandler(&adapted, nil))),
	}

	for _, l := range loggers {
		l = With(l, "run_id", "run-1")
		LogToolCall(l, "convert_time", "c1", time.Millisecond, nil)
		LogLLMCall(l, "gpt-4o-mini", 7, time.Millisecond, nil)
	}

	for _, out := range []string{structured.String(), adapted.String()} {
		assert.Contains(t, out, "tool.call.completed")
		assert.Contains(t, out, "llm.call.completed")
		assert.Contains(t, out, "run_id=run-1")
		assert.Contains(t, out, "call_id=c1")
	}
}

func TestWith_Nests(t *testing.T) {
	var buf bytes.Buffer
	l := With(With(NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil))), "a", 1), "b", 2)

	l.Warn("nested", "c", 3)

	assert.Contains(t, buf.String(), "nested a=1 b=2 c=3")
}

func TestClone_DoesNotShareContext(t *testing.T) {
	base := NewLogger(nil)
	child := base.WithContext("k", "v")

	assert.Empty(t, base.context)
	assert.Equal(t, "v", child.context["k"])
}
