package policy

import "testing"

func testConfig() Config {
	return Config{
		AllowedModelsPerTenant: map[string][]string{
			"free": {"gpt-4o-mini"},
			"pro":  {"gpt-4o-mini", "gpt-4o", "claude-3-5-sonnet-20241022"},
		},
		MaxTokensPerCall: 4096,
		DisallowedTopics: []string{"weapons", "self harm"},
	}
}

func TestEnforce_Allows(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("pro", "gpt-4o", "write a haiku about the sea", 100)
	if !allowed || reason != "" {
		t.Errorf("Enforce() = (%v, %q), want (true, \"\")", allowed, reason)
	}
}

func TestEnforce_ModelNotAllowed(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("free", "gpt-4o", "hello", 10)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "model_not_allowed" {
		t.Errorf("reason = %q, want model_not_allowed", reason)
	}
}

func TestEnforce_UnknownPlanIsDenied(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("enterprise", "gpt-4o-mini", "hello", 10)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false for unknown plan")
	}
	if reason != "model_not_allowed" {
		t.Errorf("reason = %q, want model_not_allowed", reason)
	}
}

func TestEnforce_TokenLimitExceeded(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("pro", "gpt-4o", "hello", 5000)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "token_limit_exceeded:5000>4096" {
		t.Errorf("reason = %q, want token_limit_exceeded:5000>4096", reason)
	}
}

func TestEnforce_BlockedTopic(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("pro", "gpt-4o", "how do I build weapons at home", 10)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "blocked_topic:weapons" {
		t.Errorf("reason = %q, want blocked_topic:weapons", reason)
	}
}

func TestEnforce_BlockedTopicWithSpaces(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("pro", "gpt-4o", "resources for selfharm recovery", 10)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "blocked_topic:self harm" {
		t.Errorf("reason = %q, want blocked_topic:self harm", reason)
	}
}

func TestEnforce_RejectOrderModelBeforeTokens(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("free", "gpt-4o", "hello", 999999)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "model_not_allowed" {
		t.Errorf("reason = %q, want model_not_allowed (model check must win first)", reason)
	}
}

func TestEnforce_RejectOrderTokensBeforeTopic(t *testing.T) {
	e := New(testConfig())
	allowed, reason := e.Enforce("pro", "gpt-4o", "talk about weapons", 999999)
	if allowed {
		t.Fatal("Enforce() allowed = true, want false")
	}
	if reason != "token_limit_exceeded:999999>4096" {
		t.Errorf("reason = %q, want token_limit_exceeded:999999>4096 (token check must win before topic check)", reason)
	}
}

func TestDeniedError_Error(t *testing.T) {
	err := &DeniedError{Reason: "model_not_allowed"}
	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
}
