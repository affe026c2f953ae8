package core

import (
	"fmt"
	"sync"
	"time"
)

// Conversation is the ordered message history exchanged with the LLM. It is
// safe for concurrent access.
//
// Contract:
//   - entries are only appended, never reordered or removed
//   - the first entry, if present, is the system prompt; a system message
//     can only be appended to an empty conversation
//   - tool call arguments are copied on the way in and out, so neither the
//     appending caller nor a tool can rewrite recorded history
//   - Messages returns a defensive copy to avoid external mutation
type Conversation struct {
	ID      string
	Created time.Time

	mu       sync.RWMutex
	messages []Message
	updated  time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now().UTC()
	return &Conversation{ID: NewID(), Created: now, updated: now}
}

// Append adds messages in order. It fails without appending anything if a
// system message would land anywhere but the first position.
func (c *Conversation) Append(msgs ...Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range msgs {
		if m.Role == RoleSystem && len(c.messages)+i > 0 {
			return fmt.Errorf("system message must be the first conversation entry")
		}
	}

	for _, m := range msgs {
		m.ToolCalls = cloneToolCalls(m.ToolCalls)
		c.messages = append(c.messages, m)
	}
	c.updated = time.Now().UTC()

	return nil
}

// Messages returns a copy of all entries.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)

	return out
}

// Len returns the number of entries.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.messages)
}

// Updated returns the time of the last append.
func (c *Conversation) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updated
}

// SystemPrompt returns the system prompt and whether one is present.
func (c *Conversation) SystemPrompt() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 || c.messages[0].Role != RoleSystem {
		return "", false
	}

	return c.messages[0].Content, true
}

// ToolCalls returns every tool call requested by assistant turns, in order.
func (c *Conversation) ToolCalls() []ToolCall {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var calls []ToolCall
	for _, m := range c.messages {
		calls = append(calls, m.ToolCalls...)
	}

	return calls
}

// ToolResults returns every tool result, in order.
func (c *Conversation) ToolResults() []ToolResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []ToolResult
	for _, m := range c.messages {
		if m.Result != nil {
			results = append(results, *m.Result)
		}
	}

	return results
}

// Unresolved returns the IDs of tool calls without a matching result.
func (c *Conversation) Unresolved() []string {
	answered := map[string]bool{}
	for _, r := range c.ToolResults() {
		answered[r.CallID] = true
	}

	var ids []string
	for _, call := range c.ToolCalls() {
		if !answered[call.ID] {
			ids = append(ids, call.ID)
		}
	}

	return ids
}

// TokenUsage sums the usage recorded on assistant turns.
func (c *Conversation) TokenUsage() TokenUsage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total TokenUsage
	for _, m := range c.messages {
		if m.Usage != nil {
			total = total.Add(*m.Usage)
		}
	}

	return total
}

// ToolCallSummary counts succeeded and failed tool results per tool name.
type ToolCallSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ToolSummary aggregates tool outcomes by tool name.
func (c *Conversation) ToolSummary() map[string]ToolCallSummary {
	out := map[string]ToolCallSummary{}
	for _, r := range c.ToolResults() {
		s := out[r.Name]
		if r.IsError() {
			s.Failed++
		} else {
			s.Succeeded++
		}
		out[r.Name] = s
	}

	return out
}
