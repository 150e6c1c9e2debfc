package nexus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nexus.yaml")
	doc := `
providers:
  openai: sk-test
consensus_threshold: 0.8
default_max_models: 3
tenant_plans:
  acme: pro
tenant_budgets:
  acme:
    monthly_cap_usd: 500
    hard_cap_usd: 750
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.ConsensusThreshold != 0.8 {
		t.Errorf("ConsensusThreshold = %v, want 0.8", cfg.ConsensusThreshold)
	}
	if cfg.DefaultMaxModels != 3 {
		t.Errorf("DefaultMaxModels = %d, want 3", cfg.DefaultMaxModels)
	}
	if cfg.GlobalDeadlineSeconds != 120 {
		t.Errorf("GlobalDeadlineSeconds = %d, want default 120", cfg.GlobalDeadlineSeconds)
	}
	if cfg.TenantBudgets["acme"].HardCapUSD != 750 {
		t.Errorf("TenantBudgets[acme].HardCapUSD = %v, want 750", cfg.TenantBudgets["acme"].HardCapUSD)
	}
}

func TestLoadConfig_DefaultsAppliedWhenUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nexus.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  openai: sk-test\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.ConsensusThreshold != 0.75 {
		t.Errorf("ConsensusThreshold = %v, want default 0.75", cfg.ConsensusThreshold)
	}
	if cfg.DefaultMaxModels != 5 {
		t.Errorf("DefaultMaxModels = %d, want default 5", cfg.DefaultMaxModels)
	}
	if cfg.PerCallTimeoutSeconds != 60 {
		t.Errorf("PerCallTimeoutSeconds = %d, want default 60", cfg.PerCallTimeoutSeconds)
	}
	if cfg.SQLDialect != "sqlite" {
		t.Errorf("SQLDialect = %q, want sqlite", cfg.SQLDialect)
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nexus.toml")
	if err := os.WriteFile(path, []byte("x=1"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil, want unsupported extension error")
	}
}

func TestValidateConfig_RejectsOutOfRangeConsensusThreshold(t *testing.T) {
	cfg := Config{ConsensusThreshold: 1.5, DefaultMaxModels: 5, SQLDialect: "sqlite"}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("ValidateConfig() error = nil, want error for threshold > 1")
	}
}

func TestValidateConfig_RejectsUnknownDialect(t *testing.T) {
	cfg := Config{ConsensusThreshold: 0.5, DefaultMaxModels: 5, SQLDialect: "mysql"}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("ValidateConfig() error = nil, want error for unknown dialect")
	}
}

func TestValidateConfig_RejectsEmptyTenantPlan(t *testing.T) {
	cfg := Config{
		ConsensusThreshold: 0.5,
		DefaultMaxModels:   5,
		SQLDialect:         "sqlite",
		TenantPlans:        map[string]string{"acme": ""},
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("ValidateConfig() error = nil, want error for empty plan")
	}
}
