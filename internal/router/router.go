// Package router selects which models a request should be fanned out to,
// based on detected task type, requested mode, provider exclusions, and
// credential availability.
package router

import (
	"regexp"
	"strings"
)

// registryOrder fixes the iteration order of Registry for the degenerate
// fallback path, so SelectModels stays deterministic (map iteration order
// in Go is randomized per-process and would otherwise violate spec.md
// §4.C's "deterministic for a fixed registry and credential set").
var registryOrder = []string{
	"gpt-4o", "gpt-4o-mini", "o1-preview",
	"claude-3-5-sonnet-20241022", "claude-3-haiku-20240307",
	"deepseek-reasoner", "deepseek-chat",
	"gemini-1.5-pro", "llama-3.3-70b", "mistral-large-latest",
}

// Mode is the caller-requested routing profile for a request.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeCode       Mode = "code"
	ModeReasoning  Mode = "reasoning"
	ModeSearchRAG  Mode = "search_rag"
	ModeMultiModel Mode = "multi_model"
	ModeFast       Mode = "fast"
	ModeCreative   Mode = "creative"
)

// Task is the detected intent of a prompt, used to pick a task-specialized
// candidate list when the request isn't pinned to ModeFast.
type Task string

const (
	TaskGeneral       Task = "general"
	TaskCode          Task = "code"
	TaskMath          Task = "math"
	TaskReasoning     Task = "reasoning"
	TaskCreative      Task = "creative"
	TaskSearch        Task = "search"
	TaskSummarization Task = "summarization"
	TaskTranslation   Task = "translation"
	TaskClassification Task = "classification"
)

// ModelDescriptor is a single entry in the static model registry.
type ModelDescriptor struct {
	ID       string
	Provider string
	Strength []string
	Latency  string
	CostTier string
}

// Registry is the static, read-only-after-startup model catalog the router
// selects from. Built once at startup — never fetched or refreshed at
// request time.
var Registry = map[string]ModelDescriptor{
	"gpt-4o":                      {ID: "gpt-4o", Provider: "openai", Strength: []string{"general", "code", "reasoning"}, Latency: "medium", CostTier: "premium"},
	"gpt-4o-mini":                 {ID: "gpt-4o-mini", Provider: "openai", Strength: []string{"general", "fast"}, Latency: "fast", CostTier: "cheap"},
	"o1-preview":                  {ID: "o1-preview", Provider: "openai", Strength: []string{"reasoning", "math"}, Latency: "slow", CostTier: "expensive"},
	"claude-3-5-sonnet-20241022":  {ID: "claude-3-5-sonnet-20241022", Provider: "anthropic", Strength: []string{"general", "code", "creative", "reasoning"}, Latency: "medium", CostTier: "premium"},
	"claude-3-haiku-20240307":     {ID: "claude-3-haiku-20240307", Provider: "anthropic", Strength: []string{"fast", "summarization"}, Latency: "fast", CostTier: "cheap"},
	"deepseek-reasoner":           {ID: "deepseek-reasoner", Provider: "deepseek", Strength: []string{"reasoning", "math", "code"}, Latency: "medium", CostTier: "cheap"},
	"deepseek-chat":               {ID: "deepseek-chat", Provider: "deepseek", Strength: []string{"general", "code"}, Latency: "fast", CostTier: "cheap"},
	"gemini-1.5-pro":              {ID: "gemini-1.5-pro", Provider: "google", Strength: []string{"general", "search", "creative"}, Latency: "slow", CostTier: "expensive"},
	"llama-3.3-70b":               {ID: "llama-3.3-70b", Provider: "groq", Strength: []string{"general", "fast"}, Latency: "fast", CostTier: "cheap"},
	"mistral-large-latest":        {ID: "mistral-large-latest", Provider: "mistral", Strength: []string{"general", "code"}, Latency: "medium", CostTier: "medium"},
}

// ModeModels maps each Mode to its ordered candidate list.
var ModeModels = map[Mode][]string{
	ModeChat:       {"claude-3-5-sonnet-20241022", "gpt-4o", "deepseek-chat"},
	ModeCode:       {"claude-3-5-sonnet-20241022", "deepseek-reasoner", "gpt-4o"},
	ModeReasoning:  {"deepseek-reasoner", "o1-preview", "claude-3-5-sonnet-20241022"},
	ModeSearchRAG:  {"gpt-4o", "claude-3-5-sonnet-20241022"},
	ModeMultiModel: {"gpt-4o", "claude-3-5-sonnet-20241022", "deepseek-reasoner"},
	ModeFast:       {"gpt-4o-mini", "claude-3-haiku-20240307", "llama-3.3-70b"},
	ModeCreative:   {"claude-3-5-sonnet-20241022", "gpt-4o", "gemini-1.5-pro"},
}

// TaskModels maps each Task to its ordered candidate list.
var TaskModels = map[Task][]string{
	TaskMath:          {"deepseek-reasoner", "o1-preview", "gpt-4o"},
	TaskCode:          {"claude-3-5-sonnet-20241022", "deepseek-reasoner", "gpt-4o"},
	TaskReasoning:     {"deepseek-reasoner", "o1-preview", "claude-3-5-sonnet-20241022"},
	TaskCreative:      {"claude-3-5-sonnet-20241022", "gpt-4o", "gemini-1.5-pro"},
	TaskTranslation:   {"gpt-4o", "claude-3-5-sonnet-20241022"},
	TaskSummarization: {"claude-3-haiku-20240307", "gpt-4o-mini"},
	TaskGeneral:       {"gpt-4o", "claude-3-5-sonnet-20241022"},
}

// taskKeywords is evaluated in map-iteration-independent order: to keep
// detection deterministic (Go map iteration is randomized), the rules are
// held in a slice instead, checked in declaration order exactly like the
// reference router's dict walk.
var taskKeywords = []struct {
	task Task
	re   *regexp.Regexp
}{
	{TaskMath, regexp.MustCompile(`(?i)\b(calcul|integral|deriv|equation|matrix|solve|polynomial|theorem|proof|algebra|geometry|statistic|probabili)`)},
	{TaskCode, regexp.MustCompile(`(?i)\b(code|function|class|debug|refactor|implement|script|python|javascript|typescript|rust|golang|sql|api|algorithm)\b`)},
	{TaskReasoning, regexp.MustCompile(`(?i)\b(reason|analyze|think|logic|deduce|infer|argument|evaluate|critique|compare|contrast|explain why)\b`)},
	{TaskCreative, regexp.MustCompile(`(?i)\b(write|story|poem|creative|fiction|narrative|character|plot|metaphor|imagine|invent)\b`)},
	{TaskTranslation, regexp.MustCompile(`(?i)\b(translat|convert to|in (spanish|french|portuguese|german|japanese|chinese|arabic|italian))`)},
	{TaskSummarization, regexp.MustCompile(`(?i)\b(summar|tldr|brief|overview|key points|main points|condense|abstract)`)},
}

// detectTask runs the ordered keyword rules against the lowercased prompt.
// The first rule to match wins; no match falls back to TaskGeneral.
func detectTask(prompt string) Task {
	lower := strings.ToLower(prompt)
	for _, kw := range taskKeywords {
		if kw.re.MatchString(lower) {
			return kw.task
		}
	}
	return TaskGeneral
}

// CredentialSource reports whether a non-empty credential is configured for
// a given provider name. The router treats a provider as available iff
// HasCredential returns true, or the environment is development.
type CredentialSource interface {
	HasCredential(provider string) bool
}

// Router selects candidate models for a request.
type Router struct {
	creds         CredentialSource
	isDevelopment bool
}

// New constructs a Router. isDevelopment mirrors the "environment =
// development" config option: when true, every provider is treated as
// available regardless of credential presence, matching local/dev usage
// without real keys configured.
func New(creds CredentialSource, isDevelopment bool) *Router {
	return &Router{creds: creds, isDevelopment: isDevelopment}
}

func (r *Router) isAvailable(modelID string) bool {
	desc, ok := Registry[modelID]
	if !ok {
		return false
	}
	if r.isDevelopment {
		return true
	}
	return r.creds.HasCredential(desc.Provider)
}

// SelectModels runs the routing algorithm described in spec.md §4.C:
// task detection, candidate set selection, provider exclusion, credential
// availability filtering, a degenerate fallback when nothing survives, and
// truncation to maxModels.
func (r *Router) SelectModels(prompt string, mode Mode, maxModels int, excludeProviders []string) []string {
	task := detectTask(prompt)

	var candidates []string
	if (task == TaskMath || task == TaskCode || task == TaskReasoning) && mode != ModeFast {
		candidates = TaskModels[task]
	} else {
		if list, ok := ModeModels[mode]; ok {
			candidates = list
		} else {
			candidates = ModeModels[ModeChat]
		}
	}

	if len(excludeProviders) > 0 {
		excluded := make(map[string]bool, len(excludeProviders))
		for _, p := range excludeProviders {
			excluded[p] = true
		}
		filtered := make([]string, 0, len(candidates))
		for _, m := range candidates {
			if !excluded[Registry[m].Provider] {
				filtered = append(filtered, m)
			}
		}
		candidates = filtered
	}

	available := make([]string, 0, len(candidates))
	for _, m := range candidates {
		if r.isAvailable(m) {
			available = append(available, m)
		}
	}

	if len(available) == 0 {
		if r.isAvailable("gpt-4o") {
			available = []string{"gpt-4o"}
		} else {
			available = registryOrder[:1]
		}
	}

	if maxModels > 0 && len(available) > maxModels {
		available = available[:maxModels]
	}
	return available
}

// ProviderFor returns the provider that serves modelID, defaulting to
// "openai" for an unknown model the same way the reference router does.
func ProviderFor(modelID string) string {
	if desc, ok := Registry[modelID]; ok {
		return desc.Provider
	}
	return "openai"
}
