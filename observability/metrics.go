package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool call status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusSkipped  = "skipped"
)

// UnknownTool labels calls to tools no registry provides. The LLM picks tool
// names freely, so they never become label values.
const UnknownTool = "unknown"

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagents_runs_total",
			Help: "Total agent runs by terminal state",
		},
		[]string{"state"},
	)

	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpagents_steps_total",
		Help: "Total LLM turns taken across all runs",
	})

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpagents_tool_calls_total",
			Help: "Total tool calls by tool and status",
		},
		[]string{"tool", "status"},
	)

	tokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpagents_tokens_total",
		Help: "Total tokens reported by LLM providers",
	})

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcpagents_run_duration_seconds",
			Help:    "Duration of agent runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)
)

// RecordRun records a finished run.
func RecordRun(state string, d time.Duration) {
	runsTotal.WithLabelValues(state).Inc()
	runDuration.WithLabelValues(state).Observe(d.Seconds())
}

// RecordStep counts one LLM turn.
func RecordStep() { stepsTotal.Inc() }

// RecordToolCall counts one tool call outcome. Not-found calls are always
// counted under UnknownTool.
func RecordToolCall(tool, status string) {
	if status == StatusNotFound {
		tool = UnknownTool
	}
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordTokens adds provider-reported token usage.
func RecordTokens(n int) {
	if n > 0 {
		tokensTotal.Add(float64(n))
	}
}
