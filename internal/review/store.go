package review

import "context"

// Store is the persistence interface for review runs and everything a run
// produces: surviving findings, triage decisions, and task submissions.
// Submissions are durable so a tracker failure is never silently lost.
type Store interface {
	GetRun(ctx context.Context, id string) (*Run, bool, error)
	GetRunByFingerprint(ctx context.Context, fingerprint string) (*Run, bool, error)
	PutRun(ctx context.Context, run *Run) error

	PutFindings(ctx context.Context, runID string, findings []Finding) error
	ListFindings(ctx context.Context, runID string) ([]Finding, error)

	PutDecision(ctx context.Context, runID string, d *Decision) error
	ListDecisions(ctx context.Context, runID string) ([]Decision, error)

	PutSubmission(ctx context.Context, runID string, sub *Submission) error
	ListSubmissions(ctx context.Context, runID string) ([]Submission, error)
}
