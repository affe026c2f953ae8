package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/evaluation"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/model"
)

// EvaluatorOptions configures an Evaluator.
type EvaluatorOptions struct {
	Name string
	// Criteria is the markdown criteria table. Empty selects
	// evaluation.DefaultCriteria.
	Criteria  string
	StepLimit int
	Logger    logging.Logger
	Tracer    trace.Tracer
}

// Evaluator grades a proposed solution against a goal.
type Evaluator struct {
	agent    *Agent
	criteria string
}

// NewEvaluator creates an evaluator agent bound to llm.
func NewEvaluator(llm model.Model, optFns ...func(o *EvaluatorOptions)) (*Evaluator, error) {
	opts := EvaluatorOptions{
		Name:      "evaluator",
		Criteria:  evaluation.DefaultCriteria,
		StepLimit: DefaultStepLimit,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a, err := New(opts.Name, llm, nil, func(o *Options) {
		o.Description = "Evaluates the final work product of another agent against its goal."
		o.Instructions = NewInstructionFromText(evaluation.Instructions)
		o.StepLimit = opts.StepLimit
		o.SuccessSchema = evaluation.SuccessSchema()
		o.Logger = opts.Logger
		o.Tracer = opts.Tracer
	})
	if err != nil {
		return nil, err
	}

	return &Evaluator{agent: a, criteria: opts.Criteria}, nil
}

// Agent returns the underlying agent.
func (e *Evaluator) Agent() *Agent { return e.agent }

// Evaluate scores solution against goal. A non-empty trace is included as the
// worklog of the agent that produced the solution.
func (e *Evaluator) Evaluate(ctx context.Context, goal, solution string, trace []core.Message) (*evaluation.Result, error) {
	task, err := evaluation.BuildTask(goal, solution, e.criteria, trace)
	if err != nil {
		return nil, fmt.Errorf("build evaluation task: %w", err)
	}

	res, err := e.agent.Run(ctx, task)
	if err != nil {
		return nil, err
	}

	return evaluation.ParseResult(res.Success)
}
