// Package transform rewrites tool metadata and call behaviour from
// declarative overrides: renamed tools, rewritten descriptions, constant
// and default argument injection, and pre/post call hooks.
package transform

import (
	"sort"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// ParameterOverride rewrites one existing parameter. Nil fields keep the
// original value.
type ParameterOverride struct {
	Description       *string `json:"description,omitempty" yaml:"description,omitempty"`
	AppendDescription *string `json:"append_description,omitempty" yaml:"append_description,omitempty"`
	Required          *bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default           any     `json:"default,omitempty" yaml:"default,omitempty"`
	Constant          any     `json:"constant,omitempty" yaml:"constant,omitempty"`
}

// Override is the declarative transformation of one tool.
type Override struct {
	Name              string                       `json:"name,omitempty" yaml:"name,omitempty"`
	Description       string                       `json:"description,omitempty" yaml:"description,omitempty"`
	AppendDescription string                       `json:"append_description,omitempty" yaml:"append_description,omitempty"`
	Enabled           *bool                        `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Parameters        map[string]ParameterOverride `json:"parameter_overrides,omitempty" yaml:"parameter_overrides,omitempty"`
	HookParameters    []tool.Parameter             `json:"hook_parameters,omitempty" yaml:"hook_parameters,omitempty"`
	PreCallHook       string                       `json:"pre_call_hook,omitempty" yaml:"pre_call_hook,omitempty"`
	PostCallHook      string                       `json:"post_call_hook,omitempty" yaml:"post_call_hook,omitempty"`
}

// IsEnabled reports whether the transformed tool should be registered.
func (o Override) IsEnabled() bool { return o.Enabled == nil || *o.Enabled }

// ApplyOverride produces the transformed definition of def. It never
// modifies def. Errors are *core.ConfigurationError values wrapping one of
// ErrParameterNotFound, ErrRequiredDowngrade, ErrDefaultAndConstant or
// ErrParameterExists.
func ApplyOverride(def tool.Definition, o Override) (tool.Definition, error) {
	out := def.Clone()

	if out.Description != "" && o.AppendDescription != "" {
		out.Description += "\n" + o.AppendDescription
	}
	if o.Description != "" {
		out.Description = o.Description
	}

	// Hook parameters are added first so overrides may refine them.
	for _, hp := range o.HookParameters {
		if hp.Name == "" {
			return def, core.NewConfigurationError(def.Name, "", nil, "hook parameter name must not be empty")
		}
		if hp.Default != nil && hp.Constant != nil {
			return def, core.NewConfigurationError(def.Name, hp.Name, core.ErrDefaultAndConstant, "")
		}
		if err := out.Schema.Add(hp.Clone()); err != nil {
			return def, core.NewConfigurationError(def.Name, hp.Name, core.ErrParameterExists, err.Error())
		}
	}

	for _, name := range sortedKeys(o.Parameters) {
		po := o.Parameters[name]

		i := out.Schema.Index(name)
		if i < 0 {
			return def, core.NewConfigurationError(def.Name, name, core.ErrParameterNotFound, "parameter does not exist on tool")
		}

		p := out.Schema.Parameters[i]

		if po.Default != nil && po.Constant != nil {
			return def, core.NewConfigurationError(def.Name, name, core.ErrDefaultAndConstant, "")
		}
		if po.Required != nil {
			if !*po.Required && p.Required {
				return def, core.NewConfigurationError(def.Name, name, core.ErrRequiredDowngrade, "")
			}
			p.Required = p.Required || *po.Required
		}

		if p.Description != "" && po.AppendDescription != nil {
			p.Description += "\n" + *po.AppendDescription
		}
		if po.Description != nil {
			p.Description = *po.Description
		}
		if po.Default != nil {
			p.Default = po.Default
			p.Constant = nil
		}
		if po.Constant != nil {
			p.Constant = po.Constant
			p.Default = nil
		}

		out.Schema.Parameters[i] = p
	}

	if o.Name != "" {
		out.Name = o.Name
	}

	return out, nil
}

func sortedKeys(m map[string]ParameterOverride) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
