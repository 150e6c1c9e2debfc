package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := `
allowed_models_per_tenant:
  free:
    - gpt-4o-mini
  pro:
    - gpt-4o-mini
    - gpt-4o
max_tokens_per_call: 4096
disallowed_topics:
  - weapons
required_pii_scan: true
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxTokensPerCall != 4096 {
		t.Errorf("MaxTokensPerCall = %d, want 4096", cfg.MaxTokensPerCall)
	}
	if len(cfg.AllowedModelsPerTenant["pro"]) != 2 {
		t.Errorf("AllowedModelsPerTenant[pro] = %v, want 2 entries", cfg.AllowedModelsPerTenant["pro"])
	}
	if !cfg.RequiredPIIScan {
		t.Error("RequiredPIIScan = false, want true")
	}
}

func TestLoad_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	doc := `{
		"allowed_models_per_tenant": {"free": ["gpt-4o-mini"]},
		"max_tokens_per_call": 2048,
		"disallowed_topics": []
	}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxTokensPerCall != 2048 {
		t.Errorf("MaxTokensPerCall = %d, want 2048", cfg.MaxTokensPerCall)
	}
}

func TestLoad_SchemaRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := `
allowed_models_per_tenant:
  free: [gpt-4o-mini]
max_tokens_per_call: 1024
not_a_real_field: true
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want schema validation failure")
	}
}

func TestLoad_SchemaRejectsMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := `
disallowed_topics: [weapons]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want schema validation failure for missing required fields")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.toml")
	if err := os.WriteFile(path, []byte("x=1"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want unsupported extension error")
	}
}
