package flow

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/model"
	"github.com/hupe1980/mcpagents/observability"
	"github.com/hupe1980/mcpagents/tool"
)

// HaltFunc reports whether a requested call concludes the run. A turn that
// contains a halting call is not dispatched.
type HaltFunc func(call core.ToolCall) bool

// SingleStepOptions configure a SingleStep.
type SingleStepOptions struct {
	// MaxParallel bounds concurrent tool calls within one turn.
	MaxParallel int
	// Halt marks control calls. Nil means no call halts.
	Halt HaltFunc
	// Executor overrides the default parallel executor.
	Executor FunctionExecutor
	Tracer   trace.Tracer
}

// StepResult is the outcome of one LLM turn.
type StepResult struct {
	Assistant core.Message
	Results   []core.ToolResult
	// Halted is the control call that concluded the turn, if any.
	Halted *core.ToolCall
}

// SingleStep performs one "pick tools, call tools" turn.
type SingleStep struct {
	llm      model.Model
	executor FunctionExecutor
	halt     HaltFunc
	tracer   trace.Tracer
}

// NewSingleStep creates a SingleStep bound to llm.
func NewSingleStep(llm model.Model, optFns ...func(o *SingleStepOptions)) *SingleStep {
	opts := SingleStepOptions{MaxParallel: 5}

	for _, fn := range optFns {
		fn(&opts)
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewParallelFunctionExecutor(FunctionExecutorConfig{
			MaxParallel: opts.MaxParallel,
			Tracer:      opts.Tracer,
		})
	}

	return &SingleStep{
		llm:      llm,
		executor: executor,
		halt:     opts.Halt,
		tracer:   opts.Tracer,
	}
}

// Run asks the model for the next turn over the run's conversation and
// executes the requested calls. The assistant message and all tool results
// are appended to the conversation before Run returns. Provider failures are
// returned as *core.LLMLinkError.
func (s *SingleStep) Run(runCtx *core.RunContext, tools *tool.Registry) (*StepResult, error) {
	ctx, span := observability.StartStep(runCtx.Context, s.tracer, runCtx.Agent.Name, runCtx.Limiter.Count())
	runCtx = runCtx.WithContext(ctx)

	res, err := s.run(runCtx, tools)
	if res != nil {
		span.SetAttributes(attribute.Int(observability.AttrCalls, len(res.Assistant.ToolCalls)))
	}

	observability.EndSpan(span, err)

	return res, err
}

func (s *SingleStep) run(runCtx *core.RunContext, tools *tool.Registry) (*StepResult, error) {
	info := s.llm.Info()

	req := model.Request{
		Messages: runCtx.Conversation.Messages(),
		Tools:    model.ToolDefinitions(tools.Definitions()),
	}

	start := time.Now()

	resp, err := s.llm.Generate(runCtx.Context, req)

	tokens := 0
	if err == nil && resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logging.LogLLMCall(logging.With(runCtx.Logger(), "agent", runCtx.Agent.Name), info.Name, tokens, time.Since(start), err)

	if err != nil {
		runCtx.LogError("flow.llm.error", "agent", runCtx.Agent.Name, "provider", info.Provider, "error", err.Error())
		return nil, &core.LLMLinkError{Agent: runCtx.Agent.Name, Provider: info.Provider, Err: err}
	}

	observability.RecordStep()

	if resp.Usage != nil {
		runCtx.Usage.Add(*resp.Usage)
		observability.RecordTokens(resp.Usage.TotalTokens)
	}

	assistant := resp.Message
	assistant.Role = core.RoleAssistant

	if assistant.ID == "" {
		assistant.ID = core.NewID()
	}

	if assistant.Usage == nil {
		assistant.Usage = resp.Usage
	}

	runCtx.LogInfo(
		"flow.llm.completed",
		"agent", runCtx.Agent.Name,
		"model", info.Name,
		"tool_calls", len(assistant.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := runCtx.AppendMessages(assistant); err != nil {
		return nil, err
	}

	result := &StepResult{Assistant: assistant}

	if !assistant.HasToolCalls() {
		return result, nil
	}

	if halted := s.findHalt(assistant.ToolCalls); halted != nil {
		result.Halted = halted
		result.Results = concludeTurn(tools, assistant.ToolCalls, *halted)
	} else {
		result.Results = s.executor.Execute(runCtx, tools, assistant.ToolCalls)
	}

	msgs := make([]core.Message, len(result.Results))
	for i, r := range result.Results {
		msgs[i] = core.NewToolResultMessage(r)
	}

	if err := runCtx.AppendMessages(msgs...); err != nil {
		return nil, err
	}

	runCtx.LogDebug("flow.step.complete", "agent", runCtx.Agent.Name, "results", len(msgs), "halted", result.Halted != nil)

	return result, nil
}

func (s *SingleStep) findHalt(calls []core.ToolCall) *core.ToolCall {
	if s.halt == nil {
		return nil
	}

	for i := range calls {
		if s.halt(calls[i]) {
			c := calls[i]
			return &c
		}
	}

	return nil
}

// concludeTurn answers every call of a halted turn without dispatching any.
func concludeTurn(tools *tool.Registry, calls []core.ToolCall, halted core.ToolCall) []core.ToolResult {
	results := make([]core.ToolResult, len(calls))

	for i, c := range calls {
		if c.ID == halted.ID && c.Name == halted.Name {
			results[i] = core.ToolResult{CallID: c.ID, Name: c.Name, Content: "acknowledged"}
			continue
		}

		results[i] = core.ToolResult{
			CallID: c.ID,
			Name:   c.Name,
			Error:  fmt.Sprintf("not executed: the task was concluded by %s in the same turn", halted.Name),
		}

		observability.RecordToolCall(metricToolName(tools, c.Name), observability.StatusSkipped)
	}

	return results
}
