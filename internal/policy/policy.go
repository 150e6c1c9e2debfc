package policy

import (
	"fmt"
	"strings"
)

// DeniedError reports why Enforce rejected a request. Reason is one of
// "model_not_allowed", "token_limit_exceeded:<tokens>>{cap}", or
// "blocked_topic:<topic>".
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("policy denied: %s", e.Reason)
}

// Engine evaluates a loaded Config against individual requests.
type Engine struct {
	cfg Config
}

// New wraps cfg for enforcement.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Enforce checks model, prompt, and tokens against plan's allow-list, the
// configured token cap, and the disallowed-topics list, in that order —
// the first violation wins. allowed is true and reason is empty when the
// request passes every gate.
func (e *Engine) Enforce(plan, model, prompt string, tokens int) (allowed bool, reason string) {
	if !e.modelAllowed(plan, model) {
		return false, "model_not_allowed"
	}
	if tokens > e.cfg.MaxTokensPerCall {
		return false, fmt.Sprintf("token_limit_exceeded:%d>%d", tokens, e.cfg.MaxTokensPerCall)
	}
	if topic, blocked := e.blockedTopic(prompt); blocked {
		return false, fmt.Sprintf("blocked_topic:%s", topic)
	}
	return true, ""
}

func (e *Engine) modelAllowed(plan, model string) bool {
	allowed, ok := e.cfg.AllowedModelsPerTenant[plan]
	if !ok {
		return false
	}
	for _, m := range allowed {
		if m == model {
			return true
		}
	}
	return false
}

// blockedTopic reports the first disallowed topic found as a substring of
// the lowercased prompt. A topic with internal spaces also matches with its
// spaces collapsed, mirroring the reference engine's loose substring check.
func (e *Engine) blockedTopic(prompt string) (string, bool) {
	lower := strings.ToLower(prompt)
	for _, topic := range e.cfg.DisallowedTopics {
		t := strings.ToLower(topic)
		if t == "" {
			continue
		}
		if strings.Contains(lower, t) {
			return topic, true
		}
		collapsed := strings.ReplaceAll(t, " ", "")
		if collapsed != t && strings.Contains(lower, collapsed) {
			return topic, true
		}
	}
	return "", false
}
