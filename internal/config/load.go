package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/runnerguard/runnerguard/internal/models"
	"sigs.k8s.io/yaml"
)

// Load reads a JSON or YAML policy configuration file
func Load(path string) (*models.PolicyConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes JSON, or YAML converted to JSON, and validates enums. Unknown fields are rejected.
func Parse(data []byte) (*models.PolicyConfiguration, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, parseErr("", fmt.Errorf("empty configuration"))
	}

	jsonData := trimmed
	if trimmed[0] != '{' {
		converted, err := yaml.YAMLToJSON(trimmed)
		if err != nil {
			return nil, parseErr("", fmt.Errorf("invalid YAML: %w", err))
		}
		jsonData = converted
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()
	var cfg models.PolicyConfiguration
	if err := dec.Decode(&cfg); err != nil {
		return nil, parseErr("", fmt.Errorf("invalid JSON: %w", err))
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, parseErr("", fmt.Errorf("invalid JSON: unexpected data after the configuration object"))
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
