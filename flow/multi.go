package flow

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/model"
	"github.com/hupe1980/mcpagents/tool"
)

// State of a multi-step run.
type State string

const (
	StateRunning           State = "RUNNING"
	StateSucceeded         State = "SUCCEEDED"
	StateFailed            State = "FAILED"
	StateStepLimitExceeded State = "STEP_LIMIT_EXCEEDED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s != StateRunning }

// Outcome is the terminal result of a multi-step run.
type Outcome struct {
	State         State
	Steps         int
	Success       map[string]any
	FailureReason string
}

// MultiStepOptions configure a MultiStep.
type MultiStepOptions struct {
	MaxParallel int
	Control     Control
	Executor    FunctionExecutor
	// BeforeStep is called before every step once it has been counted.
	BeforeStep Interrupt
	Tracer     trace.Tracer
}

// MultiStep drives single steps until a control tool concludes the task or
// the run's step limiter is exhausted.
type MultiStep struct {
	step       *SingleStep
	control    Control
	beforeStep Interrupt
}

// NewMultiStep creates a MultiStep bound to llm.
func NewMultiStep(llm model.Model, optFns ...func(o *MultiStepOptions)) *MultiStep {
	opts := MultiStepOptions{MaxParallel: 5, Control: DefaultControl()}

	for _, fn := range optFns {
		fn(&opts)
	}

	control := opts.Control.normalized()

	step := NewSingleStep(llm, func(o *SingleStepOptions) {
		o.MaxParallel = opts.MaxParallel
		o.Executor = opts.Executor
		o.Tracer = opts.Tracer
		o.Halt = control.Halt
	})

	return &MultiStep{step: step, control: control, beforeStep: opts.BeforeStep}
}

// Run executes the loop over runCtx's conversation. The control tools are
// offered in addition to tools. Cancellation is checked between steps and
// returned as the context error.
func (m *MultiStep) Run(runCtx *core.RunContext, tools *tool.Registry) (*Outcome, error) {
	if tools == nil {
		tools, _ = tool.NewRegistry()
	}

	available, err := tools.With(m.control.Tools()...)
	if err != nil {
		return nil, err
	}

	limiter := runCtx.Limiter

	for {
		if err := runCtx.Context.Err(); err != nil {
			return nil, err
		}

		if err := limiter.Increment(); err != nil {
			if !errors.Is(err, core.ErrStepLimitExceeded) {
				return nil, err
			}

			runCtx.LogWarn("flow.step_limit.exceeded", "agent", runCtx.Agent.Name, "limit", limiter.Max())

			return &Outcome{
				State:         StateStepLimitExceeded,
				Steps:         limiter.Count(),
				FailureReason: fmt.Sprintf("step limit of %d reached without report_success or report_failure", limiter.Max()),
			}, nil
		}

		runCtx.LogInfo("flow.step.start", "agent", runCtx.Agent.Name, "step", limiter.Count(), "limit", limiter.Max())

		if m.beforeStep != nil {
			if err := m.beforeStep(runCtx, available, limiter.Count()); err != nil {
				return nil, err
			}
		}

		res, err := m.step.Run(runCtx, available)
		if err != nil {
			return nil, err
		}

		if res.Halted == nil {
			continue
		}

		// Halt only accepts decodable payloads.
		args, _ := res.Halted.Args()

		if res.Halted.Name == ReportSuccessTool {
			return &Outcome{State: StateSucceeded, Steps: limiter.Count(), Success: args}, nil
		}

		return &Outcome{State: StateFailed, Steps: limiter.Count(), FailureReason: failureReason(args)}, nil
	}
}
