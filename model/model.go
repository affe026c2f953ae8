package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewToolDefinition converts tool metadata into the provider-neutral form.
func NewToolDefinition(def tool.Definition) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Schema.JSONSchema(),
		},
	}
}

// ToolDefinitions converts a list of tool definitions.
func ToolDefinitions(defs []tool.Definition) []ToolDefinition {
	out := make([]ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = NewToolDefinition(d)
	}
	return out
}

// Request captures the normalized model input produced by flows: the whole
// conversation (system prompt first) and the tools on offer.
type Request struct {
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage = core.TokenUsage

// Response is one assistant turn.
type Response struct {
	ID           string       `json:"id"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the LLM link: it turns a conversation plus tool schemas into one
// assistant turn. Implementations bound their own latency; the caller's
// context cancels in-flight requests.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a scripted in-memory Model for tests and examples. Scripted
// turns are returned in order. Once the script is exhausted the fallback is
// used, or an error is returned.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []mockTurn
	fallback func(req Request) (*Response, error)
	requests []Request
}

type mockTurn struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: provider, SupportsTools: true}}
}

// AddResponse queues a full response.
func (m *MockModel) AddResponse(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := resp
	m.script = append(m.script, mockTurn{resp: &r})
	return m
}

// AddText queues a text-only assistant turn.
func (m *MockModel) AddText(text string) *MockModel {
	return m.AddResponse(Response{Message: core.NewAssistantMessage(text, nil, nil), FinishReason: "stop"})
}

// AddToolCalls queues an assistant turn requesting calls.
func (m *MockModel) AddToolCalls(calls ...core.ToolCall) *MockModel {
	return m.AddResponse(Response{Message: core.NewAssistantMessage("", calls, nil), FinishReason: "tool_calls"})
}

// AddError queues a failing turn.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockTurn{err: err})
	return m
}

// SetFallback installs the generator used after the script is exhausted.
func (m *MockModel) SetFallback(fn func(req Request) (*Response, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
	return m
}

// Requests returns every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)

	var turn *mockTurn
	if len(m.script) > 0 {
		t := m.script[0]
		m.script = m.script[1:]
		turn = &t
	}
	fallback := m.fallback
	m.mu.Unlock()

	if turn == nil {
		if fallback == nil {
			return nil, fmt.Errorf("mock model %s: %w", m.info.Name, core.ErrNoResponse)
		}
		return fallback(req)
	}

	if turn.err != nil {
		return nil, turn.err
	}

	resp := *turn.resp
	if resp.ID == "" {
		resp.ID = core.NewID()
	}

	return &resp, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
