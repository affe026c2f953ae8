package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Script(t *testing.T) {
	boom := errors.New("quota")
	m := NewMockModel("mock", "test").
		AddText("hello").
		AddToolCalls(core.ToolCall{ID: "c1", Name: "lookup"}).
		AddError(boom)

	ctx := context.Background()

	r1, err := m.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", r1.Message.Content)
	assert.NotEmpty(t, r1.ID)

	r2, err := m.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "lookup", r2.Message.ToolCalls[0].Name)

	_, err = m.Generate(ctx, Request{})
	assert.ErrorIs(t, err, boom)

	_, err = m.Generate(ctx, Request{})
	assert.ErrorIs(t, err, core.ErrNoResponse)

	assert.Len(t, m.Requests(), 4)
}

func TestMockModel_Fallback(t *testing.T) {
	m := NewMockModel("mock", "test").SetFallback(func(req Request) (*Response, error) {
		return &Response{Message: core.NewAssistantMessage("fallback", nil, nil)}, nil
	})

	r, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", r.Message.Content)
}

func TestMockModel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockModel("mock", "test").AddText("never").Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewToolDefinition(t *testing.T) {
	def := NewToolDefinition(tool.Definition{
		Name:        "lookup",
		Description: "Find things",
		Schema:      tool.Schema{Parameters: []tool.Parameter{{Name: "q", Type: "string", Required: true}}},
	})

	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "lookup", def.Function.Name)
	assert.Equal(t, []string{"q"}, def.Function.Parameters["required"])
}
