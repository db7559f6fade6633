// Package precheck provides deterministic pre-check analyzers. Their findings
// flow through the same ingestion contract as LLM output.
package precheck

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// suppressMarker on a matched line marks the finding as intentionally
// suppressed; the scorer treats that as a false-positive indicator.
const suppressMarker = "sift:ignore"

type secretRule struct {
	rule  string
	title string
	re    *regexp.Regexp
}

var secretRules = []secretRule{
	{
		rule:  "SEC-001",
		title: "AWS access key ID committed",
		re:    regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`),
	},
	{
		rule:  "SEC-002",
		title: "Private key material committed",
		re:    regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
	},
	{
		rule:  "SEC-003",
		title: "Hardcoded credential assignment",
		re:    regexp.MustCompile(`(?i)(api[_-]?key|secret|token|passwd|password)\s*[:=]\s*["'][^"']{8,}["']`),
	},
	{
		rule:  "SEC-004",
		title: "Slack webhook URL committed",
		re:    regexp.MustCompile(`https://hooks\.slack\.com/services/T[0-9A-Za-z]+/B[0-9A-Za-z]+/[0-9A-Za-z]+`),
	},
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// Secrets scans the added lines of the diff for committed credential
// material. It is pure pattern matching: no network, no model.
type Secrets struct{}

// NewSecrets creates the secret-scanning analyzer.
func NewSecrets() *Secrets { return &Secrets{} }

// Name implements analyzer.Analyzer.
func (s *Secrets) Name() string { return "precheck-secrets" }

// Analyze implements analyzer.Analyzer. Line numbers refer to the new version
// of each file, tracked from hunk headers.
func (s *Secrets) Analyze(_ context.Context, target analyzer.Target) ([]analyzer.RawFinding, error) {
	var findings []analyzer.RawFinding

	var file string
	line := 0
	inHunk := false

	for _, raw := range strings.Split(target.Diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "+++ "):
			file = strings.TrimPrefix(strings.TrimPrefix(raw, "+++ "), "b/")
			inHunk = false
			continue
		case strings.HasPrefix(raw, "@@"):
			m := hunkHeaderRe.FindStringSubmatch(raw)
			if m == nil {
				inHunk = false
				continue
			}
			start, err := strconv.Atoi(m[1])
			if err != nil {
				inHunk = false
				continue
			}
			line = start
			inHunk = true
			continue
		case !inHunk:
			continue
		case strings.HasPrefix(raw, "-"):
			continue // removed line, does not advance the new-file counter
		}

		current := line
		line++

		if !strings.HasPrefix(raw, "+") {
			continue // context line
		}
		added := raw[1:]

		for _, r := range secretRules {
			if !r.re.MatchString(added) {
				continue
			}
			findings = append(findings, analyzer.RawFinding{
				Title:       r.title,
				Category:    "security",
				Severity:    "P1",
				File:        file,
				Line:        current,
				Description: "Rule " + r.rule + ": credential material must not be committed. Rotate the secret and move it to the secret manager.",
				Evidence:    []string{strings.TrimSpace(added)},
				Signals: map[string]bool{
					analyzer.SignalChangedContent: true,
					analyzer.SignalDocumentedRule: true,
					analyzer.SignalSuppressed:     strings.Contains(added, suppressMarker),
				},
			})
		}
	}

	return findings, nil
}
