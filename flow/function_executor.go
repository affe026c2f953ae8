package flow

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/observability"
	"github.com/hupe1980/mcpagents/tool"
)

// FunctionExecutor executes a batch of tool calls, possibly in parallel.
// Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and report an error result)
//   - Return exactly one ToolResult per incoming ToolCall, in call order
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, tools *tool.Registry, calls []core.ToolCall) []core.ToolResult
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int  // 0 or <1 => no explicit limit (len(calls))
	LogStartEvents bool // log a start line per call
	Tracer         trace.Tracer
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	tools *tool.Registry,
	calls []core.ToolCall,
) []core.ToolResult {
	n := len(calls)
	if n == 0 {
		return nil
	}

	results := make([]core.ToolResult, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		results[0] = e.executeOne(runCtx, tools, calls[0])
		return results
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()

	for i := range calls {
		select {
		case sem <- struct{}{}:
		case <-runCtx.Context.Done():
			// Calls never started still need an answer.
			results[i] = core.NewToolErrorResult(calls[i], runCtx.Context.Err())
			continue
		}

		wg.Add(1)

		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = e.executeOne(runCtx, tools, call)
		}(i, calls[i])
	}

	wg.Wait()

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", runCtx.Agent.Name,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

func (e *parallelFunctionExecutor) executeOne(
	runCtx *core.RunContext,
	tools *tool.Registry,
	call core.ToolCall,
) core.ToolResult {
	if err := runCtx.Context.Err(); err != nil {
		observability.RecordToolCall(metricToolName(tools, call.Name), observability.StatusSkipped)
		return core.NewToolErrorResult(call, err)
	}

	ctx, span := observability.StartToolCall(runCtx.Context, e.cfg.Tracer, call.Name, call.ID)
	toolCtx := core.NewToolContext(runCtx.WithContext(ctx), call.ID)

	if e.cfg.LogStartEvents {
		runCtx.LogInfo("agent.function.start", "agent", runCtx.Agent.Name, "function", call.Name, "function_call_id", call.ID)
	}

	start := time.Now()

	var (
		result any
		err    error
	)

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				runCtx.LogError("agent.function.panic", "agent", runCtx.Agent.Name, "function", call.Name, "recover", r)
			}
		}()
		result, err = executeTool(tools, toolCtx, call)
	}()

	dur := time.Since(start)

	logging.LogToolCall(logging.With(runCtx.Logger(), "agent", runCtx.Agent.Name), call.Name, call.ID, dur, err)

	observability.EndSpan(span, err)

	if err == nil {
		observability.RecordToolCall(call.Name, observability.StatusSuccess)
		return core.ToolResult{CallID: call.ID, Name: call.Name, Content: result}
	}

	var notFound *core.ToolNotFoundError
	if errors.As(err, &notFound) {
		observability.RecordToolCall(call.Name, observability.StatusNotFound)
		return core.NewToolErrorResult(call, err)
	}

	observability.RecordToolCall(call.Name, observability.StatusError)

	// The LLM sees the cause; the typed error stays on the result.
	return core.ToolResult{
		CallID: call.ID,
		Name:   call.Name,
		Error:  err.Error(),
		Err:    &core.ToolExecutionError{Tool: call.Name, CallID: call.ID, Err: err},
	}
}

// metricToolName maps names the registry does not know to a fixed label.
func metricToolName(tools *tool.Registry, name string) string {
	if tools != nil {
		if _, ok := tools.Get(name); ok {
			return name
		}
	}
	return observability.UnknownTool
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// executeTool centralizes tool lookup and argument decoding.
func executeTool(tools *tool.Registry, toolCtx *core.ToolContext, call core.ToolCall) (any, error) {
	impl, ok := tools.Get(call.Name)
	if !ok {
		return nil, &core.ToolNotFoundError{Agent: toolCtx.AgentName(), Tool: call.Name}
	}

	args, err := call.Args()
	if err != nil {
		return nil, err
	}

	return impl.Call(toolCtx, args)
}
