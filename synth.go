package nexus

import (
	"fmt"
	"strings"
)

// wordSet lowercases and tokenizes text into a set of distinct words, for
// Jaccard similarity.
func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard returns |a∩b| / |a∪b| over word sets, or 1.0 when both are empty
// (two empty responses are trivially identical).
func jaccard(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// pairwiseJaccard averages jaccard similarity over every distinct pair of
// results, the consensus measure across more than two responses.
func pairwiseJaccard(responses []string) float64 {
	if len(responses) < 2 {
		return 1.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(responses); i++ {
		for j := i + 1; j < len(responses); j++ {
			sum += jaccard(responses[i], responses[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return sum / float64(pairs)
}

// synthesisOutcome is the result of synthesize: the consensus score, whether
// multiple results were blended into a single framed response, and the
// final response text.
type synthesisOutcome struct {
	ConsensusScore float64
	Synthesized    bool
	Final          string
}

// synthesize implements spec.md's consensus/synthesis step over the valid
// (non-error) results of a fan-out. threshold is the consensus score below
// which, with at least two valid results, the response is framed as
// synthesized rather than returned as a single model's raw text.
func synthesize(valid []ModelResult, mode Mode, threshold float64) synthesisOutcome {
	if len(valid) == 0 {
		return synthesisOutcome{}
	}

	responses := make([]string, len(valid))
	for i, r := range valid {
		responses[i] = r.Response
	}
	consensus := pairwiseJaccard(responses)
	consensus = 0.5 + 0.5*consensus
	if consensus > 1.0 {
		consensus = 1.0
	}

	primary := primaryResult(valid, mode)
	synthesized := consensus < threshold && len(valid) >= 2

	final := primary.Response
	if synthesized {
		final = fmt.Sprintf("[NEXUS Synthesized — %d models, consensus %.0f%%]\n\n%s", len(valid), consensus*100, primary.Response)
	}

	return synthesisOutcome{
		ConsensusScore: consensus,
		Synthesized:    synthesized,
		Final:          final,
	}
}

// primaryResult picks the representative response: lowest latency by
// default, or highest output-token count for CODE/REASONING modes where
// thoroughness is a better proxy than speed.
func primaryResult(valid []ModelResult, mode Mode) ModelResult {
	best := valid[0]
	for _, r := range valid[1:] {
		switch mode {
		case ModeCode, ModeReasoning:
			if r.OutputTokens > best.OutputTokens {
				best = r
			}
		default:
			if r.LatencyMs < best.LatencyMs {
				best = r
			}
		}
	}
	return best
}
