package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/internal/util"
	"github.com/hupe1980/mcpagents/model"
	"github.com/hupe1980/mcpagents/observability"
	"github.com/hupe1980/mcpagents/tool"
)

// Interrupt runs before every step of a MultiStep, after the step has been
// counted. step is 1-based.
type Interrupt func(runCtx *core.RunContext, tools *tool.Registry, step int) error

// DefaultPlanningInterval is the number of steps between plan updates.
const DefaultPlanningInterval = 5

// ProducePlanTool is offered only during planning turns.
const ProducePlanTool = "produce_plan"

// Planning prompts. InitialPlanningPrompt and UpdatePlanningPrompt are
// templates over .StepLimit and .StepNumber.
const (
	FirstStepPrompt = `You can perform a small number of tool calls to gather initial context. After the first batch of calls, you will be asked to
create a detailed plan on how you will complete the task. The plan is not the task, the plan is just a list of steps you will
take to complete the task.`

	InitialPlanningPrompt = `You will now take a step back from the request and plan out your next steps. You will thoroughly review what you are
being asked to do. You will produce a thorough review of the current facts you understand regarding the request.

You will then produce a list of the next steps you will take to complete the request. You should plan out
as many steps as you can understanding that plans can change.

You understand that you only have {{.StepLimit}} steps to complete the request.
During this planning phase you can see all the tools you will have access to during the execution phase, but the only
tool that does anything is ` + "`" + ProducePlanTool + "`" + `.

You will then return the plan.`

	UpdatePlanningPrompt = `Now that {{.StepNumber}} steps have passed, you have new information and you will need to update the plan.
You will thoroughly review what you are being asked to do. You will produce a thorough review of the current facts you
understand regarding the request. All tools other than ` + "`" + ProducePlanTool + "`" + ` are no-ops while planning.

You will then produce a plan with an updated list of the next steps you will take to complete the request.`
)

// PlanPart is one step of a Plan.
type PlanPart struct {
	MissingInformation string   `json:"missing_information"`
	IntendedAction     string   `json:"intended_action"`
	ToolSelection      []string `json:"tool_selection"`
}

// Plan is the payload of a produce_plan call.
type Plan struct {
	Goal  string     `json:"goal"`
	Parts []PlanPart `json:"parts"`
}

// PlannerOptions configure a Planner.
type PlannerOptions struct {
	// Interval is the number of steps between plan updates.
	Interval        int
	FirstStepPrompt string
	InitialPrompt   string
	UpdatePrompt    string
	Tracer          trace.Tracer
}

// Planner pauses a run to let the model gather context on the first step,
// plan before the second step and update the plan every Interval steps.
// A planning turn does not count as a step. A turn that does not produce
// exactly one produce_plan call leaves the conversation untouched.
type Planner struct {
	llm  model.Model
	opts PlannerOptions
}

// NewPlanner creates a Planner bound to llm.
func NewPlanner(llm model.Model, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{
		Interval:        DefaultPlanningInterval,
		FirstStepPrompt: FirstStepPrompt,
		InitialPrompt:   InitialPlanningPrompt,
		UpdatePrompt:    UpdatePlanningPrompt,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultPlanningInterval
	}

	return &Planner{llm: llm, opts: opts}
}

// Interrupt returns the planner as a MultiStep interrupt.
func (p *Planner) Interrupt() Interrupt { return p.BeforeStep }

// BeforeStep implements Interrupt.
func (p *Planner) BeforeStep(runCtx *core.RunContext, tools *tool.Registry, step int) error {
	limit := runCtx.Limiter.Max()

	var tmpl string

	switch {
	case step == 1:
		return runCtx.AppendMessages(core.NewUserMessage(p.opts.FirstStepPrompt))
	case step == 2:
		tmpl = p.opts.InitialPrompt
	case step%p.opts.Interval == 0 && limit > p.opts.Interval:
		tmpl = p.opts.UpdatePrompt
	default:
		return nil
	}

	prompt, err := util.RenderTemplate(tmpl, map[string]any{"StepLimit": limit, "StepNumber": step})
	if err != nil {
		return fmt.Errorf("render planning prompt: %w", err)
	}

	return p.plan(runCtx, tools, step, prompt)
}

func (p *Planner) plan(runCtx *core.RunContext, tools *tool.Registry, step int, prompt string) error {
	ctx, span := observability.StartStep(runCtx.Context, p.opts.Tracer, runCtx.Agent.Name, step)

	offered, err := tools.With(planTool())
	if err != nil {
		observability.EndSpan(span, err)
		return err
	}

	promptMsg := core.NewUserMessage(prompt)

	start := time.Now()

	resp, err := p.llm.Generate(ctx, model.Request{
		Messages: append(runCtx.Conversation.Messages(), promptMsg),
		Tools:    model.ToolDefinitions(offered.Definitions()),
	})
	observability.EndSpan(span, err)

	if err != nil {
		info := p.llm.Info()
		return &core.LLMLinkError{Agent: runCtx.Agent.Name, Provider: info.Provider, Err: err}
	}

	if resp.Usage != nil {
		runCtx.Usage.Add(*resp.Usage)
		observability.RecordTokens(resp.Usage.TotalTokens)
	}

	calls := resp.Message.ToolCalls
	if len(calls) != 1 || calls[0].Name != ProducePlanTool {
		runCtx.LogWarn("flow.planning.skipped", "agent", runCtx.Agent.Name, "step", step, "tool_calls", len(calls))
		return nil
	}

	plan, err := decodePlan(calls[0])
	if err != nil {
		runCtx.LogWarn("flow.planning.invalid", "agent", runCtx.Agent.Name, "step", step, "error", err.Error())
		return nil
	}

	content, err := json.Marshal(plan)
	if err != nil {
		return err
	}

	assistant := core.NewAssistantMessage(resp.Message.Content, calls, resp.Usage)

	runCtx.LogInfo(
		"flow.planning.completed",
		"agent", runCtx.Agent.Name,
		"step", step,
		"parts", len(plan.Parts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return runCtx.AppendMessages(
		promptMsg,
		assistant,
		core.NewToolResultMessage(core.ToolResult{CallID: calls[0].ID, Name: ProducePlanTool, Content: string(content)}),
	)
}

func decodePlan(call core.ToolCall) (*Plan, error) {
	args, err := call.Args()
	if err != nil {
		return nil, err
	}

	raw, ok := args["plan"]
	if !ok {
		return nil, errors.New("missing plan")
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal(b, &plan); err != nil {
		return nil, err
	}

	if plan.Goal == "" {
		return nil, errors.New("plan has no goal")
	}

	return &plan, nil
}

// LatestPlan returns the most recent plan recorded in msgs.
func LatestPlan(msgs []core.Message) (*Plan, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		r := msgs[i].Result
		if msgs[i].Role != core.RoleTool || r == nil || r.Name != ProducePlanTool {
			continue
		}

		var plan Plan
		if err := json.Unmarshal([]byte(r.Text()), &plan); err != nil {
			continue
		}

		return &plan, true
	}

	return nil, false
}

func planTool() tool.Tool {
	part := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"missing_information": map[string]any{"type": "string", "description": "The information that you need to complete the request."},
			"intended_action":     map[string]any{"type": "string", "description": "The intended action you plan to take to gather the missing information."},
			"tool_selection":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Which tools you will probably use to gather the missing information."},
		},
		"required": []any{"missing_information", "intended_action", "tool_selection"},
	}

	schema := tool.Schema{Parameters: []tool.Parameter{{
		Name:        "plan",
		Type:        "object",
		Description: "Your detailed, multi-step plan to complete the task.",
		Required:    true,
		Extra: map[string]any{
			"properties": map[string]any{
				"goal":  map[string]any{"type": "string", "description": "The goal of the plan."},
				"parts": map[string]any{"type": "array", "items": part, "description": "The parts of the plan that bring you to a complete solution for the goal."},
			},
			"required": []any{"goal", "parts"},
		},
	}}}

	return tool.NewFunctionTool(ProducePlanTool, "Report your detailed plan for completing the task.", schema, func(*core.ToolContext, map[string]any) (any, error) {
		return "acknowledged", nil
	})
}
