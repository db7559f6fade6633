package review

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// ValidationError describes one rejected analyzer payload. Rejection is
// per-item: a malformed payload never aborts the rest of the batch.
type ValidationError struct {
	Analyzer string `json:"analyzer"`
	Index    int    `json:"index"`
	Reason   string `json:"reason"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s[%d]: %s", e.Analyzer, e.Index, e.Reason)
}

// Ingest validates and normalizes a batch of raw payloads from one analyzer.
// Valid payloads get a fresh ULID and a Finding with confidence unset; invalid
// payloads are collected as ValidationErrors alongside the successes.
func Ingest(analyzerID string, payloads []analyzer.RawFinding) ([]Finding, []ValidationError) {
	findings := make([]Finding, 0, len(payloads))
	var invalid []ValidationError

	for i, p := range payloads {
		if reason := validate(p); reason != "" {
			invalid = append(invalid, ValidationError{Analyzer: analyzerID, Index: i, Reason: reason})
			continue
		}

		findings = append(findings, Finding{
			ID:             ulid.Make().String(),
			SourceAnalyzer: analyzerID,
			Category:       Category(p.Category),
			Severity:       Severity(p.Severity),
			File:           p.File,
			Line:           p.Line,
			Title:          p.Title,
			Description:    p.Description,
			Evidence:       append([]string(nil), p.Evidence...),
			Signals:        captureSignals(p),
		})
	}

	return findings, invalid
}

func validate(p analyzer.RawFinding) string {
	if p.Title == "" {
		return "missing title"
	}
	if p.Category == "" {
		return "missing category"
	}
	if !Category(p.Category).Valid() {
		return fmt.Sprintf("unknown category %q", p.Category)
	}
	if p.Severity == "" {
		return "missing severity"
	}
	if !Severity(p.Severity).Valid() {
		return fmt.Sprintf("severity %q not in {P1, P2, P3}", p.Severity)
	}
	return ""
}

// captureSignals freezes the confidence signals at ingestion time so scoring
// is reproducible. Location and excerpt signals are derived from the payload
// itself rather than trusted from the analyzer.
func captureSignals(p analyzer.RawFinding) map[string]bool {
	signals := make(map[string]bool, len(p.Signals)+2)
	for name, present := range p.Signals {
		if present {
			signals[name] = true
		}
	}

	if p.File != "" && p.Line > 0 {
		signals[analyzer.SignalLocation] = true
	} else {
		delete(signals, analyzer.SignalLocation)
	}
	if len(p.Evidence) > 0 {
		signals[analyzer.SignalExcerpt] = true
	} else {
		delete(signals, analyzer.SignalExcerpt)
	}

	return signals
}
