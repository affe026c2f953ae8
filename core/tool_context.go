package core

import (
	"context"

	"github.com/hupe1980/mcpagents/logging"
)

// ToolContext is the surface handed to a tool implementation for one call.
// It exposes the cancellation context, correlation identifiers and a logger.
type ToolContext struct {
	ctx    context.Context
	runID  string
	callID string
	agent  AgentInfo

	*logSink
}

// NewToolContext constructs a tool context bound to a parent RunContext and
// a unique call ID.
func NewToolContext(runCtx *RunContext, callID string) *ToolContext {
	return &ToolContext{
		ctx:           runCtx.Context,
		runID:         runCtx.RunID,
		callID:        callID,
		agent:         runCtx.Agent,
		logSink: newLogSink(runCtx.Logger()),
	}
}

// NewStandaloneToolContext builds a tool context for calls that do not
// originate from an agent run, such as requests served by the MCP proxy.
func NewStandaloneToolContext(ctx context.Context, callID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ToolContext{ctx: ctx, callID: callID, logSink: newLogSink(logger)}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// WithContext returns a copy bound to ctx.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	cp := *tc
	cp.ctx = ctx
	return &cp
}

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logSink.Logger() }

// CallID returns the tool call ID associated with the tool invocation.
func (tc *ToolContext) CallID() string { return tc.callID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agent.Name }
