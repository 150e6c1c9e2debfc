// Package policy enforces per-tenant model allow-lists, token caps, and
// blocked-topic rules ahead of the router and provider fan-out.
package policy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Config is the policy document loaded once at startup, mirroring
// policy-engine/policies.yaml's shape with the token-cap and topic-block
// fields the reference config omitted.
type Config struct {
	AllowedModelsPerTenant map[string][]string `yaml:"allowed_models_per_tenant" json:"allowed_models_per_tenant"`
	MaxTokensPerCall       int                 `yaml:"max_tokens_per_call" json:"max_tokens_per_call"`
	DisallowedTopics       []string            `yaml:"disallowed_topics" json:"disallowed_topics"`
	RequiredPIIScan        bool                `yaml:"required_pii_scan" json:"required_pii_scan"`
}

// ValidateSchema checks raw (the unparsed YAML/JSON document, decoded into a
// generic value) against the embedded JSON Schema before it is ever parsed
// into a Config, catching malformed shapes at load time rather than at
// first enforcement.
func ValidateSchema(raw interface{}) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("policy.schema.json", strings.NewReader(string(schemaJSON))); err != nil {
		return fmt.Errorf("load policy schema: %w", err)
	}
	schema, err := compiler.Compile("policy.schema.json")
	if err != nil {
		return fmt.Errorf("compile policy schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("policy document failed schema validation: %w", err)
	}
	return nil
}

// Load reads a policy document from path (.yaml, .yml, or .json), validates
// it against the embedded schema, and returns the parsed Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	var raw interface{}
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing YAML policy: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing JSON policy: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy file extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := ValidateSchema(raw); err != nil {
		return nil, err
	}

	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML policy: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON policy: %w", err)
		}
	}

	return &cfg, nil
}
