package testutil

import (
	"github.com/hupe1980/mcpagents/core"
)

// ConversationBuilder provides a fluent helper for constructing
// conversations in tests.
// Example:
//
//	conv := NewConversationBuilder().System("sys").User("task").Call("c1", "lookup", args).Result("c1", "lookup", "ok").Build()
//
// Consecutive Call invocations are grouped into one assistant turn.
type ConversationBuilder struct {
	messages []core.Message
	pending  []core.ToolCall
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

func (b *ConversationBuilder) flush() {
	if len(b.pending) > 0 {
		b.messages = append(b.messages, core.NewAssistantMessage("", b.pending, nil))
		b.pending = nil
	}
}

func (b *ConversationBuilder) add(m core.Message) *ConversationBuilder {
	b.flush()
	b.messages = append(b.messages, m)
	return b
}

// System appends a system prompt (chainable).
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	return b.add(core.NewSystemMessage(text))
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	return b.add(core.NewUserMessage(text))
}

// Assistant appends a text-only assistant turn (chainable).
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	return b.add(core.NewAssistantMessage(text, nil, nil))
}

// Call adds a tool call to the current assistant turn (chainable).
func (b *ConversationBuilder) Call(id, name string, args map[string]any) *ConversationBuilder {
	if args == nil {
		args = map[string]any{}
	}
	b.pending = append(b.pending, core.ToolCall{ID: id, Name: name, Arguments: args})
	return b
}

// Result appends a successful tool result (chainable).
func (b *ConversationBuilder) Result(callID, name string, content any) *ConversationBuilder {
	return b.add(core.NewToolResultMessage(core.ToolResult{CallID: callID, Name: name, Content: content}))
}

// Error appends a failed tool result (chainable).
func (b *ConversationBuilder) Error(callID, name, msg string) *ConversationBuilder {
	return b.add(core.NewToolResultMessage(core.ToolResult{CallID: callID, Name: name, Error: msg}))
}

// Messages returns the built entries.
func (b *ConversationBuilder) Messages() []core.Message {
	b.flush()
	return append([]core.Message(nil), b.messages...)
}

// Build returns a conversation holding the built entries. It panics on an
// invalid sequence, which only happens for misuse in tests.
func (b *ConversationBuilder) Build() *core.Conversation {
	conv := core.NewConversation()
	if err := conv.Append(b.Messages()...); err != nil {
		panic(err)
	}
	return conv
}
