// Package nexus composes PII detection, model routing, provider fan-out,
// consensus synthesis, cost tracking, and audit logging behind a single
// orchestrate/stream entry point.
package nexus

import (
	"fmt"

	"github.com/nexus-ai/nexus-gateway/internal/pii"
)

// Mode selects the request's routing profile, mirroring router.Mode.
type Mode string

const (
	ModeChat       Mode = "CHAT"
	ModeCode       Mode = "CODE"
	ModeReasoning  Mode = "REASONING"
	ModeSearchRAG  Mode = "SEARCH_RAG"
	ModeMultiModel Mode = "MULTI_MODEL"
	ModeFast       Mode = "FAST"
	ModeCreative   Mode = "CREATIVE"
)

// Message is one turn of conversation context supplied by the caller.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptContext is the immutable per-request input to Orchestrate.
type PromptContext struct {
	Prompt         string
	Mode           Mode
	Tenant         string
	Actor          string
	Messages       []Message
	OverrideModels []string
	MaxModels      int
	System         string
	Temperature    float64
	MaxTokens      int
}

// ErrInvalidRequest is returned by Orchestrate and Stream when the caller's
// PromptContext fails admission validation: an empty prompt (no user
// message to route), an unrecognized message role, or a sampling parameter
// outside its allowed range.
type ErrInvalidRequest struct {
	Reason string
}

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// Validate rejects a PromptContext that Orchestrate/Stream cannot safely
// route: an absent user message, an unrecognized message role, or a
// sampling parameter out of range. Temperature is checked unconditionally
// since 0.0 is itself a valid, meaningful value (not "unset"); MaxTokens is
// a plain int rather than a pointer, so 0 means "caller did not request a
// cap" and is left to the provider's default — only an explicit, out-of-range
// value is rejected.
func (pc PromptContext) Validate() error {
	if pc.Prompt == "" && len(pc.Messages) == 0 {
		return &ErrInvalidRequest{Reason: "empty message list: prompt and messages are both empty"}
	}
	if pc.Prompt == "" {
		hasUser := false
		for _, m := range pc.Messages {
			if m.Role == "user" {
				hasUser = true
				break
			}
		}
		if !hasUser {
			return &ErrInvalidRequest{Reason: "absent user message: prompt is empty and no message has role \"user\""}
		}
	}
	for i, m := range pc.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return &ErrInvalidRequest{Reason: fmt.Sprintf("messages[%d]: unrecognized role %q", i, m.Role)}
		}
	}
	if pc.Temperature < 0.0 || pc.Temperature > 2.0 {
		return &ErrInvalidRequest{Reason: fmt.Sprintf("temperature %v out of range [0.0, 2.0]", pc.Temperature)}
	}
	if pc.MaxTokens != 0 && (pc.MaxTokens < 1 || pc.MaxTokens > 32768) {
		return &ErrInvalidRequest{Reason: fmt.Sprintf("max_tokens %d out of range [1, 32768]", pc.MaxTokens)}
	}
	return nil
}

// ModelResult is the outcome of one attempted provider call. A non-nil Err
// implies Response=="" and CostUSD==0.
type ModelResult struct {
	ModelID      string
	Provider     string
	Response     string
	LatencyMs    float64
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Err          error
}

// NexusResult is the synthesized outcome of Orchestrate.
type NexusResult struct {
	RequestID      string
	Mode           Mode
	FinalResponse  string
	ModelsUsed     []string
	ConsensusScore float64
	TotalLatencyMs float64
	TotalCostUSD   float64
	Synthesized    bool
	SafetyPassed   bool
	PIIDetected    bool
	PIIEntities    []pii.Entity
}

// AllProvidersFailedError is returned when every model in the fan-out
// failed, carrying each underlying error for diagnosis.
type AllProvidersFailedError struct {
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	return "all providers failed"
}
