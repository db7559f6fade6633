package review

import (
	"strings"
	"time"
)

// Severity is the ordinal defect severity. P1 outranks P2 outranks P3.
type Severity string

const (
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
)

// Rank returns the sort rank for a severity. Lower sorts first (P1=1).
// Unknown severities rank last; validation keeps them out of the pipeline.
func (s Severity) Rank() int {
	switch s {
	case SeverityP1:
		return 1
	case SeverityP2:
		return 2
	case SeverityP3:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is one of the fixed severity set.
func (s Severity) Valid() bool {
	return s == SeverityP1 || s == SeverityP2 || s == SeverityP3
}

// Category classifies what kind of observation a finding is.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryPerformance Category = "performance"
	CategoryPlatform    Category = "platform-pattern"
	CategoryDesign      Category = "design"
	CategoryQuality     Category = "quality"
)

// Valid reports whether c is one of the fixed category set.
func (c Category) Valid() bool {
	switch c {
	case CategorySecurity, CategoryPerformance, CategoryPlatform, CategoryDesign, CategoryQuality:
		return true
	default:
		return false
	}
}

// Finding is a single normalized observation produced by an analyzer.
// Confidence is written only by the scorer and the deduplicator; it is always
// recomputable from Signals plus the corroboration count in MergedFrom.
type Finding struct {
	ID             string          `json:"id"`
	SourceAnalyzer string          `json:"source_analyzer"`
	Category       Category        `json:"category"`
	Severity       Severity        `json:"severity"`
	File           string          `json:"file,omitempty"`
	Line           int             `json:"line,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Evidence       []string        `json:"evidence,omitempty"`
	Signals        map[string]bool `json:"signals,omitempty"`
	Confidence     int             `json:"confidence"`
	MergedFrom     []string        `json:"merged_from,omitempty"`
	Conflict       bool            `json:"conflict,omitempty"`
}

// RepoWide reports whether the finding has no file location.
func (f *Finding) RepoWide() bool {
	return f.File == ""
}

// normalizedTitle lowercases and collapses whitespace, for repo-wide grouping.
func normalizedTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Outcome is the terminal triage decision for a finding.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeEdited   Outcome = "edited"
)

// Decision records a triage outcome for a single finding. Edited carries the
// substituted finding only when Outcome is OutcomeEdited.
type Decision struct {
	FindingID string    `json:"finding_id"`
	Outcome   Outcome   `json:"outcome"`
	Edited    *Finding  `json:"edited,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Submission tracks one accepted finding's journey to the external tracker.
// A submission is never discarded after a tracker failure; it is retried,
// then surfaced terminally with Attempts and LastError preserved.
type Submission struct {
	FindingID  string    `json:"finding_id"`
	ExternalID string    `json:"external_id,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Status tracks where a review run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusAnalyzing means analyzers are running or the pipeline is reducing
	StatusAnalyzing Status = "analyzing"

	// StatusTriaging means the triage session is presenting findings
	StatusTriaging Status = "triaging"

	// StatusComplete means every surviving finding got a terminal decision
	StatusComplete Status = "complete"

	// StatusIncomplete means the session was cancelled with findings undecided.
	// This is a legitimate resumable state, not an error.
	StatusIncomplete Status = "incomplete"

	// StatusFailed means the run aborted before triage could finish
	StatusFailed Status = "failed"
)

// ConfidenceBuckets is the transcript's confidence distribution.
type ConfidenceBuckets struct {
	High int `json:"90_100"`
	Mid  int `json:"80_89"`
	Low  int `json:"below_80"`
}

// Transcript is the structured summary emitted at session end.
type Transcript struct {
	TotalIngested int               `json:"total_ingested"`
	Invalid       int               `json:"invalid"`
	Surviving     int               `json:"surviving"`
	Buckets       ConfidenceBuckets `json:"confidence_buckets"`
	Accepted      int               `json:"accepted"`
	Skipped       int               `json:"skipped"`
	Edited        int               `json:"edited"`
	ExternalIDs   []string          `json:"external_ids,omitempty"`
	FailedTasks   int               `json:"failed_tasks,omitempty"`
	Incomplete    bool              `json:"incomplete"`
}

// Run is one review run's lifecycle record.
type Run struct {
	ID          string      `json:"id"`
	Fingerprint string      `json:"fingerprint"`
	Repo        string      `json:"repo"`
	Ref         string      `json:"ref"`
	Status      Status      `json:"status"`
	Error       string      `json:"error,omitempty"`
	Transcript  *Transcript `json:"transcript,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty"`
	Duration    float64     `json:"duration_seconds,omitempty"`
}

// BucketConfidence sorts confidences into transcript buckets.
func BucketConfidence(findings []Finding) ConfidenceBuckets {
	var b ConfidenceBuckets
	for _, f := range findings {
		switch {
		case f.Confidence >= 90:
			b.High++
		case f.Confidence >= 80:
			b.Mid++
		default:
			b.Low++
		}
	}
	return b
}
