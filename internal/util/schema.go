package util

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// ValidationError reports one argument that does not satisfy its schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Field is one parameter derived from a struct field.
type Field struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// StructFields lists the exported fields of v in declaration order.
//
// Tags: json names the field ("-" skips it, omitempty makes it optional),
// description documents it and enum holds comma separated allowed values.
// Pointer fields are optional.
func StructFields(v any) []Field {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		f := Field{
			Name:        name,
			Type:        jsonType(sf.Type),
			Description: sf.Tag.Get("description"),
			Required:    sf.Type.Kind() != reflect.Pointer && !slices.Contains(strings.Split(opts, ","), "omitempty"),
		}
		if enum := sf.Tag.Get("enum"); enum != "" {
			f.Enum = strings.Split(enum, ",")
		}

		fields = append(fields, f)
	}

	return fields
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Pointer:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

// ValidateParameters checks params against a JSON-schema object: required
// presence, primitive types and enums. Unknown params are allowed. Problems
// are reported for the first offending field, missing fields first, then in
// name order. required may be []string (built in Go) or []any (decoded).
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range requiredFields(schema["required"]) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}

		value := params[name]

		if want, _ := prop["type"].(string); !hasType(value, want) {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("expected type %s, got %T", want, value)}
		}

		if enum := enumValues(prop["enum"]); len(enum) > 0 && !slices.Contains(enum, fmt.Sprint(value)) {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("value must be one of %v", enum)}
		}
	}

	return nil
}

func requiredFields(v any) []string {
	return stringList(v)
}

func enumValues(v any) []string {
	return stringList(v)
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// hasType reports whether a decoded JSON value fits a schema type. nil fits
// every type; an empty type accepts anything.
func hasType(value any, want string) bool {
	if value == nil || want == "" {
		return true
	}

	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch n := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == float64(int64(n))
		case float32:
			return n == float32(int64(n))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "array":
		if _, ok := value.([]any); ok {
			return true
		}
		return reflect.TypeOf(value).Kind() == reflect.Slice
	case "object":
		if _, ok := value.(map[string]any); ok {
			return true
		}
		return reflect.TypeOf(value).Kind() == reflect.Map
	default:
		return true
	}
}
