package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city":  map[string]any{"type": "string"},
			"days":  map[string]any{"type": "integer"},
			"units": map[string]any{"type": "string", "enum": []any{"metric", "imperial"}},
		},
		"required": []string{"city"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"city": "Berlin", "days": float64(3)}, schema))

	err := ValidateParameters(map[string]any{"days": float64(3)}, schema)
	assert.EqualError(t, err, "validation error for field 'city': required field is missing")

	err = ValidateParameters(map[string]any{"city": "Berlin", "days": 1.5}, schema)
	assert.Error(t, err)

	err = ValidateParameters(map[string]any{"city": "Berlin", "units": "kelvin"}, schema)
	assert.Error(t, err)
}

func TestValidateParameters_DecodedRequired(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"q": map[string]any{"type": "string"}},
		"required":   []any{"q"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Agent `{{.Name}}` <{{.Role}}>", map[string]any{"Name": "clock", "Role": "timekeeper"})
	assert.NoError(t, err)
	assert.Equal(t, "Agent `clock` <timekeeper>", out)

	out, err = RenderTemplate("no markers", nil)
	assert.NoError(t, err)
	assert.Equal(t, "no markers", out)
}

func TestRenderTemplate_FuncsAndErrors(t *testing.T) {
	src := `{{upper .Name}} uses {{join ", " .Tools}} ({{default "none" .Note}})`
	data := map[string]any{"Name": "clock", "Tools": []string{"now", "convert"}, "Note": ""}

	for range 2 {
		out, err := RenderTemplate(src, data)
		assert.NoError(t, err)
		assert.Equal(t, "CLOCK uses now, convert (none)", out)
	}

	_, err := RenderTemplate("{{.Name", nil)
	assert.ErrorContains(t, err, "parse template")
}

func TestStructFields_OrderAndTags(t *testing.T) {
	type args struct {
		Zone    string   `json:"zone" enum:"utc,local"`
		Amount  float64  `json:"amount,omitempty"`
		Tags    []string `json:"tags"`
		Skipped string   `json:"-"`
		hidden  string
		Note    *string
	}

	fields := StructFields(&args{})
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	assert.Equal(t, []string{"zone", "amount", "tags", "Note"}, names)
	assert.Equal(t, []string{"utc", "local"}, fields[0].Enum)
	assert.True(t, fields[0].Required)
	assert.False(t, fields[1].Required)
	assert.Equal(t, "array", fields[2].Type)
	assert.False(t, fields[3].Required)
	assert.Nil(t, StructFields(42))
}
