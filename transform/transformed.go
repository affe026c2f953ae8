package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// TransformedTool exposes a rewritten definition while dispatching to the
// original tool.
//
// Call order:
//  1. hook-only arguments are split off and never forwarded
//  2. constants replace caller values, defaults fill omitted arguments
//  3. the merged arguments are validated against the transformed schema
//  4. the pre-call hook runs and may mutate the arguments
//  5. the original tool runs with the final arguments
//  6. the post-call hook may replace the result
type TransformedTool struct {
	original   tool.Tool
	def        tool.Definition
	hookParams map[string]bool
	pre        PreCallHook
	post       PostCallHook
}

var _ tool.Tool = (*TransformedTool)(nil)

// Wrap binds a transformed definition to the original tool. hookParams names
// the parameters that are only passed to hooks.
func Wrap(original tool.Tool, def tool.Definition, hookParams []string, pre PreCallHook, post PostCallHook) *TransformedTool {
	hp := make(map[string]bool, len(hookParams))
	for _, name := range hookParams {
		hp[name] = true
	}
	return &TransformedTool{original: original, def: def.Clone(), hookParams: hp, pre: pre, post: post}
}

// Transform applies o to original and resolves its hooks from hooks.
func Transform(original tool.Tool, o Override, hooks *HookRegistry) (*TransformedTool, error) {
	def, err := ApplyOverride(tool.DefinitionOf(original), o)
	if err != nil {
		return nil, err
	}

	pre, err := hooks.Pre(o.PreCallHook)
	if err != nil {
		return nil, core.NewConfigurationError(original.Name(), "", err, "")
	}

	post, err := hooks.Post(o.PostCallHook)
	if err != nil {
		return nil, core.NewConfigurationError(original.Name(), "", err, "")
	}

	names := make([]string, len(o.HookParameters))
	for i, p := range o.HookParameters {
		names[i] = p.Name
	}

	return Wrap(original, def, names, pre, post), nil
}

// Name returns the transformed name.
func (t *TransformedTool) Name() string { return t.def.Name }

// Description returns the transformed description.
func (t *TransformedTool) Description() string { return t.def.Description }

// Schema returns the transformed schema, hook parameters included.
func (t *TransformedTool) Schema() tool.Schema { return t.def.Schema.Clone() }

// Original returns the wrapped tool.
func (t *TransformedTool) Original() tool.Tool { return t.original }

// PrepareArguments splits hook arguments off and applies constants and
// defaults. It returns the underlying tool arguments and the hook arguments.
func (t *TransformedTool) PrepareArguments(args map[string]any) (map[string]any, map[string]any) {
	toolArgs := make(map[string]any, len(args))
	hookArgs := map[string]any{}

	for k, v := range args {
		if t.hookParams[k] {
			hookArgs[k] = v
			continue
		}
		toolArgs[k] = v
	}

	for _, p := range t.def.Schema.Parameters {
		target := toolArgs
		if t.hookParams[p.Name] {
			target = hookArgs
		}

		switch {
		case p.Constant != nil:
			target[p.Name] = p.Constant
		case p.Default != nil:
			if _, ok := target[p.Name]; !ok {
				target[p.Name] = p.Default
			}
		}
	}

	return toolArgs, hookArgs
}

// Call runs the transformed invocation.
func (t *TransformedTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()

	toolArgs, hookArgs := t.PrepareArguments(args)

	merged := make(map[string]any, len(toolArgs)+len(hookArgs))
	for k, v := range toolArgs {
		merged[k] = v
	}
	for k, v := range hookArgs {
		merged[k] = v
	}

	if err := tool.ValidateArguments(t.def.Schema, merged); err != nil {
		logger.Warn("tool.transform.validation_failed", "tool", t.def.Name, "error", err.Error())

		return nil, &tool.ToolError{
			Tool:    t.def.Name,
			Message: fmt.Sprintf("provided arguments are invalid: %v", err),
			Code:    tool.CodeValidation,
			Details: err,
		}
	}

	if t.pre != nil {
		if err := t.pre(toolCtx, toolArgs, hookArgs); err != nil {
			logger.Warn("tool.transform.pre_hook_failed", "tool", t.def.Name, "error", err.Error())
			return nil, hookError(t.def.Name, "pre-call hook", err)
		}
	}

	logger.Debug("tool.transform.dispatch", "tool", t.def.Name, "original", t.original.Name(), "call_id", toolCtx.CallID())

	result, err := t.original.Call(toolCtx, toolArgs)
	if err != nil {
		return nil, err
	}

	if t.post != nil {
		result, err = t.post(toolCtx, result, toolArgs, hookArgs)
		if err != nil {
			logger.Warn("tool.transform.post_hook_failed", "tool", t.def.Name, "error", err.Error())
			return nil, hookError(t.def.Name, "post-call hook", err)
		}
	}

	return result, nil
}

func hookError(name, stage string, err error) error {
	var toolErr *tool.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return &tool.ToolError{Tool: name, Message: fmt.Sprintf("%s: %v", stage, err), Code: tool.CodeExecution, Details: err}
}

// TransformAll applies overrides keyed by original tool name. Tools without
// an override pass through unchanged and disabled tools are dropped. An
// override for an unknown tool, a hook that cannot be resolved or a name
// collision after renaming is a ConfigurationError.
func TransformAll(tools []tool.Tool, overrides map[string]Override, hooks *HookRegistry) ([]tool.Tool, error) {
	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name()] = true
	}
	for _, name := range sortedOverrideKeys(overrides) {
		if !known[name] {
			return nil, core.NewConfigurationError(name, "", core.ErrToolNotFound, "override targets an unknown tool")
		}
	}

	out := make([]tool.Tool, 0, len(tools))
	seen := map[string]bool{}
	for _, t := range tools {
		next := t
		if o, ok := overrides[t.Name()]; ok {
			if !o.IsEnabled() {
				continue
			}
			tt, err := Transform(t, o, hooks)
			if err != nil {
				return nil, err
			}
			next = tt
		}

		if seen[next.Name()] {
			return nil, core.NewConfigurationError(next.Name(), "", core.ErrDuplicateTool, "transformed tool name collides with another tool")
		}
		seen[next.Name()] = true
		out = append(out, next)
	}

	return out, nil
}

func sortedOverrideKeys(m map[string]Override) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
