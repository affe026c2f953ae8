package agent

import (
	"fmt"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// AsTool exposes the agent as a tool taking a single task argument. The
// tool returns the success text; task failures are returned as errors.
func (a *Agent) AsTool() tool.Tool {
	description := a.description
	if description == "" {
		description = fmt.Sprintf("Ask the %s agent to perform a task.", a.name)
	}

	schema := tool.Schema{Parameters: []tool.Parameter{{
		Name:        "task",
		Type:        "string",
		Description: fmt.Sprintf("The task for %s to perform.", a.name),
		Required:    true,
	}}}

	return tool.NewFunctionTool(a.name, description, schema, func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		task, _ := args["task"].(string)

		res, err := a.Run(toolCtx.Context(), task)
		if err != nil {
			return nil, err
		}

		return res.Text(), nil
	})
}
