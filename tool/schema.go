package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hupe1980/mcpagents/core"
)

// Parameter describes one named argument of a tool.
//
// Default and Constant use nil for "unset". A constant always replaces any
// caller supplied value; a default only fills an omitted argument.
type Parameter struct {
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type,omitempty" yaml:"type,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any            `json:"default,omitempty" yaml:"default,omitempty"`
	Constant    any            `json:"constant,omitempty" yaml:"constant,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Property renders the parameter as a JSON-schema property.
func (p Parameter) Property() map[string]any {
	prop := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		prop[k] = core.CloneValue(v)
	}
	if p.Type != "" {
		prop["type"] = p.Type
	}
	if p.Description != "" {
		prop["description"] = p.Description
	}
	if p.Default != nil {
		prop["default"] = core.CloneValue(p.Default)
	}
	if p.Constant != nil {
		prop["const"] = core.CloneValue(p.Constant)
	}
	return prop
}

// Clone returns a deep copy of the parameter.
func (p Parameter) Clone() Parameter {
	cp := p
	cp.Default = core.CloneValue(p.Default)
	cp.Constant = core.CloneValue(p.Constant)
	if p.Extra != nil {
		cp.Extra = core.CloneValue(p.Extra).(map[string]any)
	}
	return cp
}

// Schema is the ordered parameter list of a tool. Names are unique.
type Schema struct {
	Parameters []Parameter
}

// NewSchema builds a schema, rejecting duplicate parameter names.
func NewSchema(params ...Parameter) (Schema, error) {
	var s Schema
	for _, p := range params {
		if err := s.Add(p); err != nil {
			return Schema{}, err
		}
	}
	return s, nil
}

// Add appends a parameter. A name collision wraps core.ErrParameterExists.
func (s *Schema) Add(p Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("parameter name must not be empty")
	}
	if s.Index(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", core.ErrParameterExists, p.Name)
	}
	s.Parameters = append(s.Parameters, p)
	return nil
}

// Index returns the position of the named parameter or -1.
func (s Schema) Index(name string) int {
	for i, p := range s.Parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named parameter.
func (s Schema) Lookup(name string) (Parameter, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Parameters[i], true
	}
	return Parameter{}, false
}

// Names returns parameter names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		names[i] = p.Name
	}
	return names
}

// Required returns the names of required parameters in declaration order.
func (s Schema) Required() []string {
	var req []string
	for _, p := range s.Parameters {
		if p.Required {
			req = append(req, p.Name)
		}
	}
	return req
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	if s.Parameters == nil {
		return Schema{}
	}
	params := make([]Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p.Clone()
	}
	return Schema{Parameters: params}
}

// JSONSchema renders an object schema suitable for LLM function calling and
// argument validation.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	for _, p := range s.Parameters {
		props[p.Name] = p.Property()
	}

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := s.Required(); len(req) > 0 {
		out["required"] = req
	}

	return out
}

// MarshalJSON writes the object schema keeping parameter order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)
	for i, p := range s.Parameters {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		prop, err := json.Marshal(p.Property())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(prop)
	}
	buf.WriteByte('}')
	if req := s.Required(); len(req) > 0 {
		b, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"required":`)
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object schema keeping property order.
func (s *Schema) UnmarshalJSON(b []byte) error {
	parsed, err := ParseJSONSchema(b)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseJSONSchema decodes a JSON object schema. Parameter order follows the
// order of the "properties" object in the source document.
func ParseJSONSchema(raw []byte) (Schema, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Schema{}, nil
	}

	var doc struct {
		Properties orderedProperties `json:"properties"`
		Required   []string          `json:"required"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Schema{}, fmt.Errorf("invalid input schema: %w", err)
	}

	return buildSchema(doc.Properties.names, doc.Properties.values, doc.Required)
}

// SchemaFromMap converts a JSON-schema map. Go maps carry no order, so
// parameters are sorted by name.
func SchemaFromMap(m map[string]any) (Schema, error) {
	if m == nil {
		return Schema{}, nil
	}

	propsRaw, _ := m["properties"].(map[string]any)
	names := make([]string, 0, len(propsRaw))
	values := make(map[string]map[string]any, len(propsRaw))
	for name, v := range propsRaw {
		names = append(names, name)
		if prop, ok := v.(map[string]any); ok {
			values[name] = prop
		}
	}
	sort.Strings(names)

	var required []string
	switch req := m["required"].(type) {
	case []string:
		required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}

	return buildSchema(names, values, required)
}

func buildSchema(names []string, values map[string]map[string]any, required []string) (Schema, error) {
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}

	var s Schema
	for _, name := range names {
		p := Parameter{Name: name, Required: req[name]}
		for k, v := range values[name] {
			switch k {
			case "type":
				if t, ok := v.(string); ok {
					p.Type = t
					continue
				}
			case "description":
				if d, ok := v.(string); ok {
					p.Description = d
					continue
				}
			case "default":
				p.Default = v
				continue
			case "const":
				p.Constant = v
				continue
			}
			if p.Extra == nil {
				p.Extra = map[string]any{}
			}
			p.Extra[k] = v
		}
		if err := s.Add(p); err != nil {
			return Schema{}, err
		}
	}

	return s, nil
}

type orderedProperties struct {
	names  []string
	values map[string]map[string]any
}

func (o *orderedProperties) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties must be an object")
	}

	o.values = map[string]map[string]any{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		prop, _ := v.(map[string]any)
		if prop == nil {
			prop = map[string]any{}
		}

		o.names = append(o.names, key)
		o.values[key] = prop
	}

	_, err = dec.Token()
	return err
}

