package testutil

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// RecordingTool is a tool.Tool that echoes its arguments and records every
// invocation. Set Delay, Panic or Err to script its behaviour.
type RecordingTool struct {
	ToolName string
	Params   tool.Schema
	Delay    time.Duration
	Panic    any
	Err      error

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32

	mu   sync.Mutex
	args []map[string]any
}

// NewRecordingTool creates an echoing tool named name.
func NewRecordingTool(name string) *RecordingTool { return &RecordingTool{ToolName: name} }

// Name implements tool.Tool.
func (rt *RecordingTool) Name() string { return rt.ToolName }

// Description implements tool.Tool.
func (rt *RecordingTool) Description() string { return "recording tool " + rt.ToolName }

// Schema implements tool.Tool.
func (rt *RecordingTool) Schema() tool.Schema { return rt.Params.Clone() }

// Call implements tool.Tool.
func (rt *RecordingTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	rt.calls.Add(1)

	rt.mu.Lock()
	rt.args = append(rt.args, args)
	rt.mu.Unlock()

	n := rt.active.Add(1)
	defer rt.active.Add(-1)

	for {
		cur := rt.maxSeen.Load()
		if n <= cur || rt.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	if rt.Delay > 0 {
		select {
		case <-time.After(rt.Delay):
		case <-tc.Context().Done():
			return nil, tc.Context().Err()
		}
	}

	if rt.Panic != nil {
		panic(rt.Panic)
	}

	if rt.Err != nil {
		return nil, rt.Err
	}

	return args, nil
}

// Calls returns the number of invocations.
func (rt *RecordingTool) Calls() int { return int(rt.calls.Load()) }

// MaxConcurrent returns the highest number of overlapping invocations seen.
func (rt *RecordingTool) MaxConcurrent() int { return int(rt.maxSeen.Load()) }

// Args returns the arguments of every invocation in arrival order.
func (rt *RecordingTool) Args() []map[string]any {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]map[string]any(nil), rt.args...)
}
