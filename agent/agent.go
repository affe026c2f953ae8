package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/flow"
	"github.com/hupe1980/mcpagents/internal/util"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/memory"
	"github.com/hupe1980/mcpagents/model"
	"github.com/hupe1980/mcpagents/observability"
	"github.com/hupe1980/mcpagents/tool"
)

// Defaults applied by New.
const (
	DefaultStepLimit            = 15
	DefaultMaxParallelToolCalls = 5
)

// Options configures an Agent. Use functional options with New to override
// defaults.
type Options struct {
	Description  string
	Instructions Instruction
	// SystemPrompt is a text/template over .Name, .Description and
	// .MaxParallelToolCalls.
	SystemPrompt         string
	AllowedTools         []string
	BlockedTools         []string
	StepLimit            int
	MaxParallelToolCalls int
	Memory               memory.Provider
	// SuccessSchema and FailureSchema shape the report_success and
	// report_failure payloads. Empty schemas select the flow defaults.
	SuccessSchema tool.Schema
	FailureSchema tool.Schema
	// Planning pauses the run to plan before the second step and to update
	// the plan every PlanningInterval steps.
	Planning         bool
	PlanningInterval int
	Logger           logging.Logger
	Tracer           trace.Tracer
}

// Result is the terminal outcome of one task.
type Result struct {
	RunID         string
	State         flow.State
	Success       map[string]any
	FailureReason string
	Steps         int
	Usage         core.TokenUsage
	Conversation  []core.Message
	Duration      time.Duration
}

// Succeeded reports whether the task ended in report_success.
func (r *Result) Succeeded() bool { return r.State == flow.StateSucceeded }

// Text renders the success payload. A payload holding only a string result
// is returned verbatim; anything else is JSON encoded.
func (r *Result) Text() string {
	if len(r.Success) == 1 {
		if s, ok := r.Success["result"].(string); ok {
			return s
		}
	}

	b, err := json.Marshal(r.Success)
	if err != nil {
		return fmt.Sprint(r.Success)
	}

	return string(b)
}

// Err returns nil on success and a *core.TaskFailedError otherwise.
func (r *Result) Err(agent string) error {
	if r.Succeeded() {
		return nil
	}
	return &core.TaskFailedError{
		Agent:        agent,
		Reason:       r.FailureReason,
		StepLimit:    r.State == flow.StateStepLimitExceeded,
		Steps:        r.Steps,
		Conversation: r.Conversation,
	}
}

// Agent is a multi-step tool calling agent. It is safe for concurrent use;
// with shared memory concurrent tasks are serialized.
type Agent struct {
	name         string
	description  string
	llm          model.Model
	tools        *tool.Registry
	systemPrompt string
	stepLimit    int
	memory       memory.Provider
	logger       logging.Logger
	tracer       trace.Tracer
	flow         *flow.MultiStep

	mu          sync.RWMutex
	instruction Instruction
}

// New creates an agent over tools. The allow-list and block-list select the
// tools the agent may use; naming an unavailable tool in the allow-list is a
// *core.ConfigurationError.
func New(name string, llm model.Model, tools []tool.Tool, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Instructions:         NewInstructionFromText(DefaultInstructions),
		SystemPrompt:         DefaultSystemPrompt,
		StepLimit:            DefaultStepLimit,
		MaxParallelToolCalls: DefaultMaxParallelToolCalls,
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, core.NewConfigurationError("", "", nil, "agent name must not be empty")
	}

	if llm == nil {
		return nil, core.NewConfigurationError(name, "", nil, "agent requires an LLM")
	}

	if opts.StepLimit <= 0 {
		return nil, core.NewConfigurationError(name, "step_limit", nil, "step limit must be positive")
	}

	if opts.MaxParallelToolCalls <= 0 {
		return nil, core.NewConfigurationError(name, "max_parallel_tool_calls", nil, "max parallel tool calls must be positive")
	}

	if opts.Memory == nil {
		opts.Memory = memory.NewPrivate()
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	all, err := tool.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}

	registry, err := all.Filter(opts.AllowedTools, opts.BlockedTools)
	if err != nil {
		return nil, err
	}

	reservedNames := []string{flow.ReportSuccessTool, flow.ReportFailureTool}
	if opts.Planning {
		reservedNames = append(reservedNames, flow.ProducePlanTool)
	}

	for _, reserved := range reservedNames {
		if _, ok := registry.Get(reserved); ok {
			return nil, core.NewConfigurationError(reserved, "", core.ErrDuplicateTool, "tool name is reserved for task control")
		}
	}

	systemPrompt, err := util.RenderTemplate(opts.SystemPrompt, map[string]any{
		"Name":                 name,
		"Description":          opts.Description,
		"MaxParallelToolCalls": opts.MaxParallelToolCalls,
	})
	if err != nil {
		return nil, core.NewConfigurationError(name, "system_prompt", err, "")
	}

	if opts.PlanningInterval < 0 {
		return nil, core.NewConfigurationError(name, "planning_interval", nil, "planning interval must be positive")
	}

	multi := flow.NewMultiStep(llm, func(o *flow.MultiStepOptions) {
		o.MaxParallel = opts.MaxParallelToolCalls
		o.Control = flow.Control{SuccessSchema: opts.SuccessSchema, FailureSchema: opts.FailureSchema}
		o.Tracer = opts.Tracer
		if opts.Planning {
			o.BeforeStep = flow.NewPlanner(llm, func(po *flow.PlannerOptions) {
				if opts.PlanningInterval > 0 {
					po.Interval = opts.PlanningInterval
				}
				po.Tracer = opts.Tracer
			}).Interrupt()
		}
	})

	return &Agent{
		name:         name,
		description:  opts.Description,
		llm:          llm,
		tools:        registry,
		systemPrompt: systemPrompt,
		stepLimit:    opts.StepLimit,
		memory:       opts.Memory,
		logger:       opts.Logger,
		tracer:       opts.Tracer,
		flow:         multi,
		instruction:  opts.Instructions,
	}, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// SystemPrompt returns the rendered system prompt.
func (a *Agent) SystemPrompt() string { return a.systemPrompt }

// Tools returns the names of the tools the agent may call, excluding the
// control tools.
func (a *Agent) Tools() []string { return a.tools.Names() }

// StepLimit returns the maximum number of LLM turns per task.
func (a *Agent) StepLimit() int { return a.stepLimit }

// Instructions returns the current static instructions.
func (a *Agent) Instructions() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.instruction.Text()
}

// UpdateInstructions replaces the instructions used to seed new
// conversations. Conversations seeded earlier keep their instructions.
func (a *Agent) UpdateInstructions(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instruction = NewInstructionFromText(text)
}

func (a *Agent) currentInstruction() Instruction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.instruction
}

// Run performs task. Explicit failure or an exhausted step limit is returned
// as *core.TaskFailedError carrying the conversation.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	res, err := a.RunWithConversation(ctx, task)
	if err != nil {
		return nil, err
	}

	if err := res.Err(a.name); err != nil {
		return nil, err
	}

	return res, nil
}

// RunWithConversation performs task and returns failures as data. Only
// provider errors, configuration errors and cancellation are returned as
// errors.
func (a *Agent) RunWithConversation(ctx context.Context, task string) (*Result, error) {
	lease, err := a.memory.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	runCtx := core.NewRunContext(ctx, core.AgentInfo{Name: a.name, Description: a.description}, lease.Conversation(), a.stepLimit, nil)

	logger := logging.With(a.logger, "run_id", runCtx.RunID)

	spanCtx, span := observability.StartRun(ctx, a.tracer, a.name, runCtx.RunID)
	runCtx = runCtx.WithContext(spanCtx).WithLogger(logger)

	start := time.Now()

	logger.Info("agent.run.start", "agent", a.name, "fresh", lease.Fresh(), "step_limit", a.stepLimit)

	res, err := a.run(runCtx, lease.Fresh(), task)

	dur := time.Since(start)
	state := "ERROR"
	if res != nil {
		res.Duration = dur
		state = string(res.State)
		span.SetAttributes(attribute.String(observability.AttrState, state))
	}

	observability.EndSpan(span, err)
	observability.RecordRun(state, dur)

	a.logSummary(logger, runCtx, state, dur, err)

	return res, err
}

func (a *Agent) run(runCtx *core.RunContext, fresh bool, task string) (*Result, error) {
	if fresh {
		if err := a.seed(runCtx); err != nil {
			return nil, err
		}
	}

	if task != "" {
		if err := runCtx.AppendMessages(core.NewUserMessage(task)); err != nil {
			return nil, err
		}
	}

	out, err := a.flow.Run(runCtx, a.tools)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			runCtx.LogWarn("agent.run.cancelled", "agent", a.name, "error", err.Error())
		}
		return nil, err
	}

	return &Result{
		RunID:         runCtx.RunID,
		State:         out.State,
		Success:       out.Success,
		FailureReason: out.FailureReason,
		Steps:         out.Steps,
		Usage:         runCtx.Usage.Usage(),
		Conversation:  runCtx.Conversation.Messages(),
	}, nil
}

// seed writes the system prompt and instructions into an empty conversation.
func (a *Agent) seed(runCtx *core.RunContext) error {
	instructions, err := a.currentInstruction().Resolve(runCtx)
	if err != nil {
		return fmt.Errorf("resolve instructions for agent %s: %w", a.name, err)
	}

	msgs := []core.Message{core.NewSystemMessage(a.systemPrompt)}
	if instructions != "" {
		msgs = append(msgs, core.NewUserMessage(instructions))
	}

	return runCtx.AppendMessages(msgs...)
}

func (a *Agent) logSummary(logger logging.Logger, runCtx *core.RunContext, state string, dur time.Duration, err error) {
	usage := runCtx.Usage.Usage()
	steps := runCtx.Limiter.Count()

	logger.Info("agent.run.tool_summary", "agent", a.name, "tools", runCtx.Conversation.ToolSummary())

	logging.LogRunExecution(logging.With(logger, "agent", a.name), state, steps, dur, usage.TotalTokens, err)
}
