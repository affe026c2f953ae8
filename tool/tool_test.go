package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hupe1980/mcpagents/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolCtx() *core.ToolContext {
	return core.NewStandaloneToolContext(context.Background(), "call-1", nil)
}

// -------------------- Schema Tests --------------------

func TestParseJSONSchema_KeepsOrder(t *testing.T) {
	raw := []byte(`{
		"type": "object",
		"properties": {
			"zeta": {"type": "string", "description": "last letter"},
			"alpha": {"type": "integer", "default": 3},
			"mid": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["zeta"]
	}`)

	s, err := ParseJSONSchema(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.Names())
	assert.Equal(t, []string{"zeta"}, s.Required())

	alpha, ok := s.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, float64(3), alpha.Default)

	mid, _ := s.Lookup("mid")
	assert.Equal(t, map[string]any{"type": "string"}, mid.Extra["items"])
}

func TestParseJSONSchema_Empty(t *testing.T) {
	s, err := ParseJSONSchema(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Parameters)

	s, err = ParseJSONSchema([]byte(`{"type":"object"}`))
	require.NoError(t, err)
	assert.Empty(t, s.Parameters)
}

func TestSchema_MarshalJSONOrdered(t *testing.T) {
	s, err := NewSchema(
		Parameter{Name: "b", Type: "string", Required: true},
		Parameter{Name: "a", Type: "string", Constant: "fixed"},
	)
	require.NoError(t, err)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object","properties":{"b":{"type":"string"},"a":{"const":"fixed","type":"string"}},"required":["b"]}`, string(b))

	var back Schema
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []string{"b", "a"}, back.Names())
	a, _ := back.Lookup("a")
	assert.Equal(t, "fixed", a.Constant)
}

func TestSchema_DuplicateParameter(t *testing.T) {
	_, err := NewSchema(Parameter{Name: "x"}, Parameter{Name: "x"})
	assert.ErrorIs(t, err, core.ErrParameterExists)
}

func TestSchema_CloneIsDeep(t *testing.T) {
	s := Schema{Parameters: []Parameter{{Name: "x", Extra: map[string]any{"enum": []any{"a"}}}}}
	cp := s.Clone()
	cp.Parameters[0].Extra["enum"].([]any)[0] = "mutated"
	cp.Parameters[0].Description = "changed"

	assert.Equal(t, "a", s.Parameters[0].Extra["enum"].([]any)[0])
	assert.Empty(t, s.Parameters[0].Description)
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	sum := NewFunctionTool("sum", "Add numbers", Schema{Parameters: []Parameter{
		{Name: "a", Type: "number", Required: true},
		{Name: "b", Type: "number", Required: true},
	}}, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	out, err := sum.Call(newToolCtx(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	called := false
	ft := NewFunctionTool("echo", "Echo", Schema{Parameters: []Parameter{{Name: "text", Type: "string", Required: true}}},
		func(*core.ToolContext, map[string]any) (any, error) {
			called = true
			return nil, nil
		})

	_, err := ft.Call(newToolCtx(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.False(t, called)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	ft := NewFunctionTool("fail", "Fails", Schema{}, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, boom
	})

	_, err := ft.Call(newToolCtx(), nil)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("lookup", "no such city", "NOT_FOUND")
	ft := NewFunctionTool("lookup", "Lookup", Schema{}, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, custom
	})

	_, err := ft.Call(newToolCtx(), nil)
	assert.Same(t, custom, err)
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type args struct {
		City string `json:"city" description:"City name"`
	}

	ft, err := NewFunctionToolFromStruct("weather", "Weather", args{}, func(*core.ToolContext, map[string]any) (any, error) {
		return "sunny", nil
	})
	require.NoError(t, err)

	p, ok := ft.Schema().Lookup("city")
	require.True(t, ok)
	assert.True(t, p.Required)
	assert.Equal(t, "City name", p.Description)

	type ordered struct {
		Zulu  string `json:"zulu"`
		Alpha string `json:"alpha" enum:"a,b"`
	}

	ot, err := NewFunctionToolFromStruct("ordered", "Ordered", ordered{}, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "zulu", ot.Schema().Parameters[0].Name)
	assert.Equal(t, []any{"a", "b"}, ot.Schema().Parameters[1].Extra["enum"])

	_, err = NewFunctionToolFromStruct("bad", "Bad", "not a struct", nil)
	assert.Error(t, err)
}

// -------------------- Registry Tests --------------------

func namedTool(name string) Tool {
	return NewFunctionTool(name, name, Schema{}, func(*core.ToolContext, map[string]any) (any, error) { return name, nil })
}

func TestRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry(namedTool("a"), namedTool("a"))

	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, core.ErrDuplicateTool)
}

func TestRegistry_Filter(t *testing.T) {
	r, err := NewRegistry(namedTool("a"), namedTool("b"), namedTool("c"))
	require.NoError(t, err)

	all, err := r.Filter(nil, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, all.Names())

	allowed, err := r.Filter([]string{"c", "a"}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, allowed.Names())

	_, err = r.Filter([]string{"missing"}, nil)
	assert.ErrorIs(t, err, core.ErrToolNotFound)

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestRegistry_With(t *testing.T) {
	r, err := NewRegistry(namedTool("a"))
	require.NoError(t, err)

	ext, err := r.With(namedTool("report_success"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "report_success"}, ext.Names())
	assert.Equal(t, 1, r.Len())

	defs := ext.Definitions()
	assert.Equal(t, "report_success", defs[1].Name)
}
