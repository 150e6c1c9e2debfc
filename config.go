package nexus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexus-ai/nexus-gateway/internal/policy"
)

// ProviderCredentials carries the API keys (or, for Bedrock, the AWS
// region) Nexus uses to construct each provider adapter at startup. An
// empty field means that provider's models are unavailable unless
// Development is set.
type ProviderCredentials struct {
	OpenAI        string `yaml:"openai" json:"openai"`
	Anthropic     string `yaml:"anthropic" json:"anthropic"`
	DeepSeek      string `yaml:"deepseek" json:"deepseek"`
	Groq          string `yaml:"groq" json:"groq"`
	Mistral       string `yaml:"mistral" json:"mistral"`
	Google        string `yaml:"google" json:"google"`
	BedrockRegion string `yaml:"bedrock_region" json:"bedrock_region"`
}

// BudgetConfig is the per-tenant spend cap pair from spec.md's Budget
// record: Disabled latches true once MTD spend crosses HardCapUSD and is
// never cleared automatically.
type BudgetConfig struct {
	MonthlyCapUSD float64 `yaml:"monthly_cap_usd" json:"monthly_cap_usd"`
	HardCapUSD    float64 `yaml:"hard_cap_usd" json:"hard_cap_usd"`
	Disabled      bool    `yaml:"disabled" json:"disabled"`
}

// Config is the top-level configuration for a Nexus orchestrator instance.
type Config struct {
	Providers ProviderCredentials `yaml:"providers" json:"providers"`
	Policy    policy.Config       `yaml:"policy" json:"policy"`

	// TenantPlans maps a tenant id to the plan name used for policy
	// enforcement (e.g. "free", "pro").
	TenantPlans map[string]string `yaml:"tenant_plans" json:"tenant_plans"`

	// TenantBudgets maps a tenant id to its daily budget configuration.
	TenantBudgets map[string]BudgetConfig `yaml:"tenant_budgets" json:"tenant_budgets"`

	ConsensusThreshold    float64 `yaml:"consensus_threshold" json:"consensus_threshold"`
	DefaultMaxModels      int     `yaml:"default_max_models" json:"default_max_models"`
	GlobalDeadlineSeconds int     `yaml:"global_deadline_seconds" json:"global_deadline_seconds"`
	PerCallTimeoutSeconds int     `yaml:"per_call_timeout_seconds" json:"per_call_timeout_seconds"`
	BackpressureThreshold int     `yaml:"backpressure_threshold" json:"backpressure_threshold"`

	// Development treats every model as available regardless of whether
	// its provider's credential is set, matching router.Router's dev mode.
	Development bool `yaml:"development" json:"development"`

	CostDSN    string `yaml:"cost_dsn" json:"cost_dsn"`
	AuditDSN   string `yaml:"audit_dsn" json:"audit_dsn"`
	SQLDialect string `yaml:"sql_dialect" json:"sql_dialect"` // "sqlite" | "postgres"
}

// defaults applied to unset fields after loading, mirroring the reference
// implementation's documented defaults (120s global deadline, 5 max models,
// 0.75 consensus threshold).
func (c *Config) applyDefaults() {
	if c.ConsensusThreshold == 0 {
		c.ConsensusThreshold = 0.75
	}
	if c.DefaultMaxModels == 0 {
		c.DefaultMaxModels = 5
	}
	if c.GlobalDeadlineSeconds == 0 {
		c.GlobalDeadlineSeconds = 120
	}
	if c.PerCallTimeoutSeconds == 0 {
		c.PerCallTimeoutSeconds = 60
	}
	if c.SQLDialect == "" {
		c.SQLDialect = "sqlite"
	}
}

// LoadConfig reads and parses a Nexus config file from path. Supported
// formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	cfg.applyDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks a Config for internal consistency.
func ValidateConfig(cfg Config) error {
	if cfg.ConsensusThreshold < 0 || cfg.ConsensusThreshold > 1 {
		return fmt.Errorf("consensus_threshold must be between 0 and 1, got %v", cfg.ConsensusThreshold)
	}
	if cfg.DefaultMaxModels <= 0 {
		return fmt.Errorf("default_max_models must be positive")
	}
	if cfg.SQLDialect != "sqlite" && cfg.SQLDialect != "postgres" {
		return fmt.Errorf("unknown sql_dialect: %q", cfg.SQLDialect)
	}
	for tenant, plan := range cfg.TenantPlans {
		if plan == "" {
			return fmt.Errorf("tenant %q has an empty plan", tenant)
		}
	}
	return nil
}
