package core

import "sync/atomic"

// TokenUsage holds token accounting for one or more LLM turns.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// TokenCounter is a monotonically increasing token counter shared by the
// steps of one run. It is informational only and never enforces a budget.
type TokenCounter struct {
	prompt     atomic.Int64
	completion atomic.Int64
	total      atomic.Int64
}

// Add records the usage of one turn. Negative values are ignored.
func (c *TokenCounter) Add(u TokenUsage) {
	if u.PromptTokens > 0 {
		c.prompt.Add(int64(u.PromptTokens))
	}
	if u.CompletionTokens > 0 {
		c.completion.Add(int64(u.CompletionTokens))
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	if total > 0 {
		c.total.Add(int64(total))
	}
}

// Usage returns a snapshot of the accumulated usage.
func (c *TokenCounter) Usage() TokenUsage {
	return TokenUsage{
		PromptTokens:     int(c.prompt.Load()),
		CompletionTokens: int(c.completion.Load()),
		TotalTokens:      int(c.total.Load()),
	}
}
