package review

import "sort"

// DefaultThreshold is the confidence cut-off applied when none is configured.
const DefaultThreshold = 80

// Filter drops every finding with confidence below threshold. Conflict-flagged
// findings always survive regardless of score: they represent analyzer
// disagreement a human must adjudicate. Filtering is monotonic in threshold.
func Filter(findings []Finding, threshold int) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Conflict || f.Confidence >= threshold {
			out = append(out, f)
		}
	}
	return out
}

// Sort stable-sorts findings by severity rank ascending (P1 first), then
// confidence descending, then ID ascending as the final tiebreaker so
// identical input always yields identical order.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := &findings[i], &findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})
}
