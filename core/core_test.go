package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendOnlyWithSystemFirst(t *testing.T) {
	conv := NewConversation()

	require.NoError(t, conv.Append(NewSystemMessage("sys"), NewUserMessage("task")))
	assert.Error(t, conv.Append(NewSystemMessage("again")))
	assert.Equal(t, 2, conv.Len())

	prompt, ok := conv.SystemPrompt()
	assert.True(t, ok)
	assert.Equal(t, "sys", prompt)

	msgs := conv.Messages()
	msgs[0].Content = "mutated"
	prompt, _ = conv.SystemPrompt()
	assert.Equal(t, "sys", prompt)
}

func TestConversation_SystemMustLeadBatch(t *testing.T) {
	conv := NewConversation()

	err := conv.Append(NewUserMessage("task"), NewSystemMessage("sys"))
	assert.Error(t, err)
	assert.Equal(t, 0, conv.Len())
}

func TestConversation_ConcurrentAppend(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conv.Append(NewUserMessage("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, conv.Len())
}

func TestConversation_UnresolvedAndSummary(t *testing.T) {
	conv := NewConversation()
	calls := []ToolCall{{ID: "c1", Name: "a"}, {ID: "c2", Name: "b"}}
	require.NoError(t, conv.Append(
		NewAssistantMessage("", calls, &TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}),
		NewToolResultMessage(ToolResult{CallID: "c1", Name: "a", Content: "ok"}),
	))

	assert.Equal(t, []string{"c2"}, conv.Unresolved())

	require.NoError(t, conv.Append(NewToolResultMessage(ToolResult{CallID: "c2", Name: "b", Error: "boom"})))
	assert.Empty(t, conv.Unresolved())

	summary := conv.ToolSummary()
	assert.Equal(t, ToolCallSummary{Succeeded: 1}, summary["a"])
	assert.Equal(t, ToolCallSummary{Failed: 1}, summary["b"])
	assert.Equal(t, 5, conv.TokenUsage().TotalTokens)
}

func TestToolResult_Text(t *testing.T) {
	assert.Equal(t, "plain", ToolResult{Content: "plain"}.Text())
	assert.Equal(t, `{"a":1}`, ToolResult{Content: map[string]int{"a": 1}}.Text())
	assert.Equal(t, "Error calling tool t: bad", ToolResult{Name: "t", Error: "bad"}.Text())

	msg := NewToolResultMessage(ToolResult{CallID: "c", Name: "t", Error: "bad"})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "c", msg.Result.CallID)
	assert.True(t, msg.Result.IsError())
}

func TestToolCall_Args(t *testing.T) {
	args, err := ToolCall{Name: "t", RawArguments: `{"x":1}`}.Args()
	require.NoError(t, err)
	assert.Equal(t, float64(1), args["x"])

	args, err = ToolCall{Name: "t"}.Args()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ToolCall{Name: "t", RawArguments: `{`}.Args()
	assert.Error(t, err)
}

func TestToolCall_ArgsReturnsCopy(t *testing.T) {
	call := ToolCall{Name: "t", Arguments: map[string]any{
		"q":    "original",
		"tags": []any{"a"},
		"opts": map[string]any{"deep": true},
	}}

	args, err := call.Args()
	require.NoError(t, err)

	args["q"] = "mutated"
	args["injected"] = true
	args["tags"].([]any)[0] = "b"
	args["opts"].(map[string]any)["deep"] = false

	assert.Equal(t, map[string]any{
		"q":    "original",
		"tags": []any{"a"},
		"opts": map[string]any{"deep": true},
	}, call.Arguments)
}

func TestConversation_AppendCopiesToolCallArguments(t *testing.T) {
	args := map[string]any{"q": "original"}
	c := NewConversation()
	require.NoError(t, c.Append(Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "t", Arguments: args}}}))

	args["q"] = "mutated"

	assert.Equal(t, "original", c.Messages()[0].ToolCalls[0].Arguments["q"])
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)

	assert.NoError(t, l.Increment())
	assert.NoError(t, l.Increment())
	assert.ErrorIs(t, l.Increment(), ErrStepLimitExceeded)
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Remaining())

	unlimited := NewStepLimiter(0)
	assert.NoError(t, unlimited.Increment())
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestTokenCounter(t *testing.T) {
	var c TokenCounter
	c.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 5})
	c.Add(TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})

	assert.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 6, TotalTokens: 17}, c.Usage())
}

func TestErrors_Unwrap(t *testing.T) {
	cfgErr := NewConfigurationError("t", "p", ErrParameterNotFound, "")
	assert.ErrorIs(t, cfgErr, ErrParameterNotFound)
	assert.Contains(t, cfgErr.Error(), `"p"`)

	nf := &ToolNotFoundError{Agent: "a", Tool: "does_not_exist"}
	assert.ErrorIs(t, nf, ErrToolNotFound)
	assert.Equal(t, "Agent 'a' tried calling tool 'does_not_exist' but it was not found", nf.Error())

	inner := errors.New("quota")
	link := &LLMLinkError{Agent: "a", Err: inner}
	assert.ErrorIs(t, link, inner)

	assert.ErrorIs(t, &TaskFailedError{StepLimit: true}, ErrStepLimitExceeded)
	assert.ErrorIs(t, &TaskFailedError{}, ErrTaskFailed)
}

func TestToolContext_FromRun(t *testing.T) {
	rc := NewRunContext(context.Background(), AgentInfo{Name: "clock"}, nil, 3, nil)

	tc := NewToolContext(rc, "call-1")
	assert.Equal(t, "clock", tc.AgentName())
	assert.Equal(t, rc.RunID, tc.RunID())
	assert.Equal(t, "call-1", tc.CallID())
	assert.NotNil(t, tc.Logger())
	assert.Equal(t, 3, rc.Limiter.Max())
}
