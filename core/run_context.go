package core

import (
	"context"

	"github.com/hupe1980/mcpagents/logging"
)

// AgentInfo identifies the agent a run belongs to.
type AgentInfo struct{ Name, Description string }

// RunContext carries the execution scope of one multi-step run:
//   - the ambient cancellation Context
//   - identifiers (RunID, Agent info)
//   - the leased Conversation steps append to
//   - the StepLimiter bounding the number of LLM turns
//   - the TokenCounter accumulating usage across turns
type RunContext struct {
	Context      context.Context
	RunID        string
	Agent        AgentInfo
	Conversation *Conversation
	Limiter      *StepLimiter
	Usage        *TokenCounter

	*logSink
}

// NewRunContext constructs a RunContext with a fresh run ID, limiter and
// token counter.
func NewRunContext(
	ctx context.Context,
	agent AgentInfo,
	conv *Conversation,
	stepLimit int,
	logger logging.Logger,
) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if conv == nil {
		conv = NewConversation()
	}
	return &RunContext{
		Context:       ctx,
		RunID:         NewID(),
		Agent:         agent,
		Conversation:  conv,
		Limiter:       NewStepLimiter(stepLimit),
		Usage:         &TokenCounter{},
		logSink:       newLogSink(logger),
	}
}

// WithContext returns a shallow copy bound to ctx. Limiter, counter and
// conversation stay shared with the original.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	cp := *rc
	cp.Context = ctx
	return &cp
}

// AppendMessages appends to the run's conversation.
func (rc *RunContext) AppendMessages(msgs ...Message) error {
	return rc.Conversation.Append(msgs...)
}

// WithLogger returns a shallow copy that logs through l.
func (rc *RunContext) WithLogger(l logging.Logger) *RunContext {
	cp := *rc
	cp.logSink = newLogSink(l)
	return &cp
}
