package tool

import (
	"fmt"

	"github.com/hupe1980/mcpagents/core"
)

// Registry is an ordered set of tools with unique names. Build it up front;
// registration is not safe for use concurrent with lookups.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates a registry containing tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Duplicate names are a ConfigurationError.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool must not be nil")
	}
	if r.tools == nil {
		r.tools = map[string]Tool{}
	}
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return core.NewConfigurationError(name, "", core.ErrDuplicateTool, "tool name already registered")
	}
	r.order = append(r.order, name)
	r.tools[name] = t
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of tools.
func (r *Registry) Len() int { return len(r.order) }

// Names returns tool names in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

// Tools returns tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the metadata of every tool in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, DefinitionOf(r.tools[name]))
	}
	return out
}

// Filter returns a new registry restricted by an allow-list and a
// block-list. An empty allow-list admits every tool; the block-list is
// applied afterwards. Allow-list names that do not exist are reported as a
// ConfigurationError.
func (r *Registry) Filter(allow, block []string) (*Registry, error) {
	blocked := make(map[string]bool, len(block))
	for _, name := range block {
		blocked[name] = true
	}

	names := r.order
	if len(allow) > 0 {
		names = make([]string, 0, len(allow))
		for _, name := range allow {
			if _, ok := r.tools[name]; !ok {
				return nil, core.NewConfigurationError(name, "", core.ErrToolNotFound, "allowed tool is not available")
			}
			names = append(names, name)
		}
	}

	out := &Registry{tools: map[string]Tool{}}
	for _, name := range names {
		if blocked[name] {
			continue
		}
		if _, dup := out.tools[name]; dup {
			continue
		}
		out.order = append(out.order, name)
		out.tools[name] = r.tools[name]
	}

	return out, nil
}

// With returns a new registry holding r's tools followed by extra.
func (r *Registry) With(extra ...Tool) (*Registry, error) {
	return NewRegistry(append(r.Tools(), extra...)...)
}
