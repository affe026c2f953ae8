package evaluation

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/internal/util"
)

// maxEntryLength bounds each string field of the rendered worklog.
const maxEntryLength = 1024

// DefaultCriteria is used when no criteria table is configured.
const DefaultCriteria = `| Criteria | Description | Points |
|----------|-------------|---------|
| Completeness | The proposed solution is complete, relevant, and covers all the aspects of the goal. | 10 |
| Accuracy | The proposed solution is accurate and correct. | 10 |
| Simplicity | The proposed solution is the simplest answer that totally achieves the stated goal. | 10 |
| Clarity | The proposed solution is clear and easy to understand. | 10 |`

// Instructions direct the evaluator agent.
const Instructions = `You are a helpful assistant that evaluates the final work product of someone who has been working to achieve a goal.

You will not do any of the work yourself, you are only evaluating the final work product. You are an objective observer
who is not swayed by errors encountered, problems, etc. You only care whether the work product achieves the goal.

Score every row of the criteria table, add notes where points were withheld, and report the table with report_success.`

const taskTemplate = `## Illustrative Example

Imagine you are judging a competition.

The task is to: ` + "`Write a Python function that calculates the square of a number.`" + `

The proposed solution multiplies the number by itself through a helper that validates integer input.

| Criteria | Score | Notes |
|----------|-------|-------|
| Completeness | 10 | None |
| Accuracy | 10 | None |
| Simplicity | 4 | A simpler solution would be to use the ` + "`**`" + ` operator. |
| Clarity | 9 | The code would be more clear if it was commented. |

Total Score: 33 out of 40 (82.5%)

# The Evaluation

The goal of the task is:
` + "```" + `
{{.Goal}}
` + "```" + `

The proposed solution is:
` + "```" + `
{{.Solution}}
` + "```" + `

The evaluation criteria is:
` + "```markdown" + `
{{.Criteria}}
` + "```" + `
{{if .Worklog}}
The conversation history is:
` + "```yaml" + `
{{.Worklog}}` + "```" + `

Note: This is a worklog from the agent that was working to achieve the goal. Entries longer than 1024 characters have
been truncated and end with "..." to indicate that they have been truncated.

You can check the worklog to make sure that the agent:
1) did not miss any important information
2) did not make any mistakes
3) did not invent a positive result that was not actually achieved
{{end}}`

// BuildTask renders the evaluation task. An empty criteria table selects
// DefaultCriteria; a non-empty trace is attached as a YAML worklog.
func BuildTask(goal, solution, criteria string, trace []core.Message) (string, error) {
	if criteria == "" {
		criteria = DefaultCriteria
	}

	worklog := ""
	if len(trace) > 0 {
		w, err := RenderWorklog(trace)
		if err != nil {
			return "", err
		}
		worklog = w
	}

	return util.RenderTemplate(taskTemplate, map[string]any{
		"Goal":     goal,
		"Solution": solution,
		"Criteria": criteria,
		"Worklog":  worklog,
	})
}

type worklogEntry struct {
	Role      string         `yaml:"role"`
	Content   string         `yaml:"content,omitempty"`
	ToolCalls []worklogCall  `yaml:"tool_calls,omitempty"`
	Result    *worklogResult `yaml:"result,omitempty"`
}

type worklogCall struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Arguments map[string]any `yaml:"arguments,omitempty"`
}

type worklogResult struct {
	CallID  string `yaml:"call_id"`
	Success bool   `yaml:"success"`
}

// RenderWorklog dumps a conversation as YAML with long strings truncated.
func RenderWorklog(trace []core.Message) (string, error) {
	entries := make([]worklogEntry, 0, len(trace))

	for _, m := range trace {
		e := worklogEntry{Role: string(m.Role), Content: truncate(m.Content)}

		for _, c := range m.ToolCalls {
			args, err := c.Args()
			if err != nil {
				args = map[string]any{"raw": truncate(c.RawArguments)}
			}
			e.ToolCalls = append(e.ToolCalls, worklogCall{ID: c.ID, Name: c.Name, Arguments: truncateMap(args)})
		}

		if m.Result != nil {
			e.Result = &worklogResult{CallID: m.Result.CallID, Success: !m.Result.IsError()}
		}

		entries = append(entries, e)
	}

	b, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("render worklog: %w", err)
	}

	return string(b), nil
}

func truncate(s string) string {
	if len(s) <= maxEntryLength {
		return s
	}
	return s[:maxEntryLength] + "..."
}

func truncateMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			v = truncate(s)
		}
		out[k] = v
	}
	return out
}
