package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML schema file and validates it
func Load(path string) (*Schema, error) {
	// #nosec G304 -- path is operator-provided schema path.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schema document and validates it
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadOrDefault loads path, or returns the embedded loan schema when path is empty
func LoadOrDefault(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
