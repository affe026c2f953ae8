package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }

// ToolCall is a single tool invocation requested by an assistant turn.
// ID is opaque and unique within the turn that produced it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	// RawArguments holds the provider payload when it could not be decoded.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// Args returns a private copy of the decoded call arguments, so callees may
// modify it freely. A call that carries only raw arguments is decoded on
// demand; decoding failures are returned as errors.
func (c ToolCall) Args() (map[string]any, error) {
	if c.Arguments != nil {
		return CloneArgs(c.Arguments), nil
	}

	if c.RawArguments == "" {
		return map[string]any{}, nil
	}

	args, err := ParseArguments(c.RawArguments)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for tool %s: %w", c.Name, err)
	}

	return args, nil
}

// CloneArgs deep-copies an argument map. Nil stays nil.
func CloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	return CloneValue(args).(map[string]any)
}

// CloneValue deep-copies JSON-like values: maps, slices and scalars.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, e := range val {
			cp[k] = CloneValue(e)
		}
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, e := range val {
			cp[i] = CloneValue(e)
		}
		return cp
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}

	cp := make([]ToolCall, len(calls))
	for i, c := range calls {
		c.Arguments = CloneArgs(c.Arguments)
		cp[i] = c
	}

	return cp
}

// ParseArguments decodes a JSON object of tool arguments. An empty string
// yields an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// ToolResult answers exactly one ToolCall, matched by CallID.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content any    `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	// Err keeps the typed cause of a failed call for errors.As inspection.
	Err error `json:"-"`
}

// IsError reports whether the call failed.
func (r ToolResult) IsError() bool { return r.Error != "" }

// Text renders the result the way it is sent back to the LLM.
func (r ToolResult) Text() string {
	if r.IsError() {
		return fmt.Sprintf("Error calling tool %s: %s", r.Name, r.Error)
	}

	switch v := r.Content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// NewToolErrorResult builds an error-bearing result for the given call.
func NewToolErrorResult(call ToolCall, err error) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, Error: err.Error(), Err: err}
}

// Message is one entry of a Conversation.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
	Usage     *TokenUsage `json:"usage,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func newMessage(role Role, content string) Message {
	return Message{ID: NewID(), Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates the system prompt entry.
func NewSystemMessage(content string) Message { return newMessage(RoleSystem, content) }

// NewUserMessage creates a user entry.
func NewUserMessage(content string) Message { return newMessage(RoleUser, content) }

// NewAssistantMessage creates an assistant turn with optional tool calls and usage.
func NewAssistantMessage(content string, calls []ToolCall, usage *TokenUsage) Message {
	m := newMessage(RoleAssistant, content)
	if len(calls) > 0 {
		m.ToolCalls = cloneToolCalls(calls)
	}
	m.Usage = usage
	return m
}

// NewToolResultMessage wraps a tool result into a tool entry.
func NewToolResultMessage(result ToolResult) Message {
	m := newMessage(RoleTool, result.Text())
	r := result
	m.Result = &r
	return m
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }
