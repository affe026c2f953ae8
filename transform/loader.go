package transform

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseOverrides decodes a document mapping original tool names to
// overrides. JSON documents are accepted as well since they are valid YAML.
//
//	convert_time:
//	  description: Converts a time from New York to another timezone.
//	  parameter_overrides:
//	    source_timezone:
//	      constant: America/New_York
func ParseOverrides(data []byte) (map[string]Override, error) {
	overrides := map[string]Override{}
	if len(bytes.TrimSpace(data)) == 0 {
		return overrides, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&overrides); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode tool overrides: %w", err)
	}

	return overrides, nil
}

// LoadOverrides reads and decodes an override file.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool overrides: %w", err)
	}
	return ParseOverrides(data)
}
