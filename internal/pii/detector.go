// Package pii scans prompt text for sensitive data and produces a redacted
// copy before the text ever reaches an external provider.
package pii

import "regexp"

// Entity describes a single matched PII occurrence. ValueLength is the
// length of the matched span itself (End-Start), carried as its own field
// so callers can report on it without recomputing the subtraction or, worse,
// needing the original text (which the detector never retains past Analyze).
type Entity struct {
	Type        string `json:"type"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Critical    bool   `json:"critical"`
	ValueLength int    `json:"value_length"`
}

// Result is the outcome of scanning one piece of text.
type Result struct {
	HasPII       bool     `json:"has_pii"`
	HasCritical  bool     `json:"has_critical_pii"`
	Entities     []Entity `json:"entities"`
	RedactedText string   `json:"redacted_text"`
}

type pattern struct {
	name     string
	re       *regexp.Regexp
	critical bool
}

// patterns is evaluated in order: earlier substitutions reshape the buffer
// that later patterns match against, so category order is significant.
// Critical categories (credentials, payment data) are listed first so they
// are never masked out of existence by an earlier, broader pattern.
var patterns = []pattern{
	{"CREDIT_CARD", regexp.MustCompile(`(?i)\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`), true},
	{"API_KEY", regexp.MustCompile(`(?i)\b(?:sk-[a-zA-Z0-9]{32,}|sk-ant-[a-zA-Z0-9\-]{50,}|AIza[0-9A-Za-z\-_]{35})\b`), true},
	{"AWS_KEY", regexp.MustCompile(`(?i)\b(?:AKIA|AIPA|ABIA|ACCA)[0-9A-Z]{16}\b`), true},
	{"EMAIL_ADDRESS", regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Z|a-z]{2,}\b`), false},
	{"PHONE_NUMBER", regexp.MustCompile(`(?i)\b(?:\+?55\s?)?(?:\(?\d{2}\)?\s?)?(?:9\s?)?\d{4}[\s\-]?\d{4}\b`), false},
	{"CPF", regexp.MustCompile(`(?i)\b\d{3}[.\-]?\d{3}[.\-]?\d{3}[.\-]?\d{2}\b`), false},
	{"CNPJ", regexp.MustCompile(`(?i)\b\d{2}[.\-]?\d{3}[.\-]?\d{3}[./]?\d{4}[.\-]?\d{2}\b`), false},
	{"SSN", regexp.MustCompile(`(?i)\b\d{3}-?\d{2}-?\d{4}\b`), false},
	{"IP_ADDRESS", regexp.MustCompile(`(?i)\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`), false},
	{"IBAN", regexp.MustCompile(`(?i)\b[A-Z]{2}[0-9]{2}[A-Z0-9]{4}[0-9]{7}(?:[A-Z0-9]?){0,16}\b`), false},
	{"PASSPORT", regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9]{6,9}\b`), false},
}

// Detector scans text for PII. It holds no mutable state, so the zero value
// is ready to use and safe for concurrent calls.
type Detector struct{}

// New returns a ready-to-use Detector.
func New() *Detector {
	return &Detector{}
}

// Analyze scans text against the ordered pattern set. Each pattern matches
// against the buffer as redacted by all earlier patterns, then substitutes
// its own matches with "[<TYPE>]" before the next pattern runs. Empty input
// returns a zero-value Result with no entities.
func (d *Detector) Analyze(text string) Result {
	redacted := text
	var entities []Entity
	hasCritical := false

	for _, p := range patterns {
		locs := p.re.FindAllStringIndex(redacted, -1)
		for _, loc := range locs {
			entities = append(entities, Entity{
				Type:        p.name,
				Start:       loc[0],
				End:         loc[1],
				Critical:    p.critical,
				ValueLength: loc[1] - loc[0],
			})
			if p.critical {
				hasCritical = true
			}
		}
		if len(locs) > 0 {
			redacted = p.re.ReplaceAllString(redacted, "["+p.name+"]")
		}
	}

	return Result{
		HasPII:       len(entities) > 0,
		HasCritical:  hasCritical,
		Entities:     entities,
		RedactedText: redacted,
	}
}

// ShouldBlock reports whether text contains any critical-category PII.
// Blocking the request itself is a policy-layer decision; this is only the
// detection signal that policy acts on.
func (d *Detector) ShouldBlock(text string) bool {
	return d.Analyze(text).HasCritical
}

// Stats aggregates a batch of Results the way a periodic reporting job
// would: total scans, how many carried any PII, how many were critical, and
// a per-category breakdown.
type Stats struct {
	TotalRequests int            `json:"total_requests"`
	PIIDetected   int            `json:"pii_detected"`
	CriticalPII   int            `json:"critical_pii"`
	ByType        map[string]int `json:"by_type"`
}

// AggregateStats folds a slice of Results produced over some time window.
func AggregateStats(results []Result) Stats {
	s := Stats{ByType: make(map[string]int)}
	s.TotalRequests = len(results)
	for _, r := range results {
		if r.HasPII {
			s.PIIDetected++
		}
		if r.HasCritical {
			s.CriticalPII++
		}
		for _, e := range r.Entities {
			s.ByType[e.Type]++
		}
	}
	return s
}
