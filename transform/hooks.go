package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/mcpagents/core"
)

// PreCallHook runs before the underlying tool. It may mutate args in place;
// returning an error aborts the call before the tool executes.
type PreCallHook func(toolCtx *core.ToolContext, args, hookArgs map[string]any) error

// PostCallHook runs after the underlying tool. Its return value replaces the
// tool result.
type PostCallHook func(toolCtx *core.ToolContext, result any, args, hookArgs map[string]any) (any, error)

// HookRegistry maps hook identifiers used in overrides to Go functions.
// Identifiers are resolved once when a tool is transformed.
type HookRegistry struct {
	mu   sync.RWMutex
	pre  map[string]PreCallHook
	post map[string]PostCallHook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{pre: map[string]PreCallHook{}, post: map[string]PostCallHook{}}
}

// RegisterPre adds a pre-call hook under id.
func (r *HookRegistry) RegisterPre(id string, fn PreCallHook) error {
	if id == "" || fn == nil {
		return fmt.Errorf("hook id and function are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pre[id]; exists {
		return fmt.Errorf("pre-call hook %q already registered", id)
	}
	r.pre[id] = fn

	return nil
}

// RegisterPost adds a post-call hook under id.
func (r *HookRegistry) RegisterPost(id string, fn PostCallHook) error {
	if id == "" || fn == nil {
		return fmt.Errorf("hook id and function are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.post[id]; exists {
		return fmt.Errorf("post-call hook %q already registered", id)
	}
	r.post[id] = fn

	return nil
}

// Pre resolves a pre-call hook. An empty id resolves to no hook.
func (r *HookRegistry) Pre(id string) (PreCallHook, error) {
	if id == "" {
		return nil, nil
	}
	if r != nil {
		r.mu.RLock()
		fn, ok := r.pre[id]
		r.mu.RUnlock()
		if ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: pre-call hook %q", core.ErrUnknownHook, id)
}

// Post resolves a post-call hook. An empty id resolves to no hook.
func (r *HookRegistry) Post(id string) (PostCallHook, error) {
	if id == "" {
		return nil, nil
	}
	if r != nil {
		r.mu.RLock()
		fn, ok := r.post[id]
		r.mu.RUnlock()
		if ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: post-call hook %q", core.ErrUnknownHook, id)
}

// IDs lists registered hook identifiers, sorted.
func (r *HookRegistry) IDs() (pre, post []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.pre {
		pre = append(pre, id)
	}
	for id := range r.post {
		post = append(post, id)
	}
	sort.Strings(pre)
	sort.Strings(post)

	return pre, post
}
