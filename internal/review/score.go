package review

import "github.com/linnemanlabs/sift/internal/analyzer"

const (
	signalWeight       = 20
	maxEvidenceHits    = 4
	corroborationBonus = 10
)

// evidenceSignals each add signalWeight, counted at most maxEvidenceHits times.
var evidenceSignals = []string{
	analyzer.SignalLocation,
	analyzer.SignalExcerpt,
	analyzer.SignalChangedContent,
	analyzer.SignalDocumentedRule,
}

// antiSignals each subtract signalWeight, uncapped.
var antiSignals = []string{
	analyzer.SignalUnchangedContent,
	analyzer.SignalDeterministicCheck,
	analyzer.SignalSuppressed,
	analyzer.SignalStylePreference,
}

// Score computes the confidence for a signal set. It is pure and
// deterministic: identical signal sets always yield identical scores.
// Corroboration is applied later by the deduplicator, never here, since it
// requires cross-finding information.
func Score(signals map[string]bool) int {
	total := 0

	hits := 0
	for _, name := range evidenceSignals {
		if signals[name] {
			hits++
		}
	}
	if hits > maxEvidenceHits {
		hits = maxEvidenceHits
	}
	total += hits * signalWeight

	for _, name := range antiSignals {
		if signals[name] {
			total -= signalWeight
		}
	}

	return clampConfidence(total)
}

// ScoreAll sets Confidence on every finding from its captured signals.
func ScoreAll(findings []Finding) {
	for i := range findings {
		findings[i].Confidence = Score(findings[i].Signals)
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
