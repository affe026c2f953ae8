package flow

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// Names of the control tools offered on every multi-step turn.
const (
	ReportSuccessTool = "report_success"
	ReportFailureTool = "report_failure"
)

// DefaultSuccessSchema asks for a single textual result.
func DefaultSuccessSchema() tool.Schema {
	return tool.Schema{Parameters: []tool.Parameter{{
		Name:        "result",
		Type:        "string",
		Description: "The result of the task. You must provide a string result.",
		Required:    true,
	}}}
}

// DefaultFailureSchema asks for the reason the task could not be completed.
func DefaultFailureSchema() tool.Schema {
	return tool.Schema{Parameters: []tool.Parameter{{
		Name:        "reason",
		Type:        "string",
		Description: "Why the task could not be completed. You must provide a string reason.",
		Required:    true,
	}}}
}

// Control describes the payloads accepted by the two control tools.
type Control struct {
	SuccessSchema tool.Schema
	FailureSchema tool.Schema
}

// DefaultControl returns a Control using the default schemas.
func DefaultControl() Control {
	return Control{SuccessSchema: DefaultSuccessSchema(), FailureSchema: DefaultFailureSchema()}
}

func (c Control) normalized() Control {
	if len(c.SuccessSchema.Parameters) == 0 {
		c.SuccessSchema = DefaultSuccessSchema()
	}
	if len(c.FailureSchema.Parameters) == 0 {
		c.FailureSchema = DefaultFailureSchema()
	}
	return c
}

// Tools returns report_success and report_failure. When dispatched they only
// validate their payload; concluding the run is done by Halt.
func (c Control) Tools() []tool.Tool {
	c = c.normalized()

	ack := func(*core.ToolContext, map[string]any) (any, error) { return "acknowledged", nil }

	return []tool.Tool{
		tool.NewFunctionTool(ReportSuccessTool, "Report successful completion of the task.", c.SuccessSchema, ack),
		tool.NewFunctionTool(ReportFailureTool, "Report failure of the task.", c.FailureSchema, ack),
	}
}

// Halt reports whether call is a control call with a valid payload.
func (c Control) Halt(call core.ToolCall) bool {
	c = c.normalized()

	var schema tool.Schema

	switch call.Name {
	case ReportSuccessTool:
		schema = c.SuccessSchema
	case ReportFailureTool:
		schema = c.FailureSchema
	default:
		return false
	}

	args, err := call.Args()
	if err != nil {
		return false
	}

	return tool.ValidateArguments(schema, args) == nil
}

// failureReason extracts the reason from a report_failure payload. Custom
// failure schemas without a reason field are rendered as JSON.
func failureReason(args map[string]any) string {
	for _, key := range []string{"reason", "error"} {
		if s, ok := args[key].(string); ok && s != "" {
			return s
		}
	}

	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}

	return string(b)
}
