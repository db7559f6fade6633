package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/review"
)

// Presentation is everything the decision maker sees for one finding. The
// finding is carried verbatim: confidence, severity, location, description,
// and evidence are all on the record, nothing is withheld.
type Presentation struct {
	Finding review.Finding `json:"finding"`
	Index   int            `json:"index"`
	Total   int            `json:"total"`
}

// Decision is a single triage choice for the currently presented finding.
// Edited must be set when Outcome is OutcomeEdited.
type Decision struct {
	Outcome review.Outcome  `json:"outcome"`
	Edited  *review.Finding `json:"edited,omitempty"`
}

// DecisionProvider supplies a decision for each presented finding. Decide may
// block indefinitely on external input; it must honor ctx cancellation.
type DecisionProvider interface {
	Decide(ctx context.Context, p Presentation) (Decision, error)
}

// Counts tallies session decisions so far.
type Counts struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Edited   int `json:"edited"`
}

// Result is the outcome of a session run.
type Result struct {
	Decisions  []review.Decision // full decision history, edits included
	Accepted   []review.Finding  // findings with a terminal accept, post-edit
	Undecided  []review.Finding  // still presented when the session stopped
	Counts     Counts
	Incomplete bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Session walks a sorted finding queue strictly sequentially. Findings are
// immutable once queued; an edit substitutes a modified copy and re-presents
// it before a terminal choice. Cancellation lands only between findings,
// never mid-decision, so recorded decisions are never corrupted.
type Session struct {
	queue  []review.Finding
	cursor int
	counts Counts
	logger log.Logger
}

// NewSession creates a session over the given queue. The queue is copied so
// the caller's slice stays untouched by edits.
func NewSession(queue []review.Finding, logger log.Logger) *Session {
	if logger == nil {
		logger = log.Nop()
	}
	return &Session{
		queue:  append([]review.Finding(nil), queue...),
		logger: logger,
	}
}

// Run presents each finding in turn until the queue is exhausted or ctx is
// cancelled. Cancellation is not an error: undecided findings remain
// presented and the result is marked incomplete.
func (s *Session) Run(ctx context.Context, provider DecisionProvider) *Result {
	res := &Result{StartedAt: time.Now()}

	for s.cursor < len(s.queue) {
		if ctx.Err() != nil {
			res.Incomplete = true
			break
		}

		f := s.queue[s.cursor]
		d, err := provider.Decide(ctx, Presentation{
			Finding: f,
			Index:   s.cursor,
			Total:   len(s.queue),
		})
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn(ctx, "decision provider failed",
					"finding_id", f.ID,
					"error", err.Error(),
				)
			}
			res.Incomplete = true
			break
		}

		switch d.Outcome {
		case review.OutcomeEdited:
			edited, err := applyEdit(f, d.Edited)
			if err != nil {
				s.logger.Warn(ctx, "rejected edit", "finding_id", f.ID, "error", err.Error())
				continue // re-present the original
			}
			s.queue[s.cursor] = edited
			s.counts.Edited++
			res.Decisions = append(res.Decisions, review.Decision{
				FindingID: f.ID,
				Outcome:   review.OutcomeEdited,
				Edited:    &edited,
				DecidedAt: time.Now(),
			})
			continue // edited returns to presented, no cursor advance

		case review.OutcomeAccepted:
			s.counts.Accepted++
			res.Accepted = append(res.Accepted, f)

		case review.OutcomeSkipped:
			s.counts.Skipped++

		default:
			s.logger.Warn(ctx, "unknown triage outcome", "finding_id", f.ID, "outcome", string(d.Outcome))
			continue
		}

		res.Decisions = append(res.Decisions, review.Decision{
			FindingID: f.ID,
			Outcome:   d.Outcome,
			DecidedAt: time.Now(),
		})
		s.cursor++
	}

	res.Counts = s.counts
	res.Undecided = append([]review.Finding(nil), s.queue[s.cursor:]...)
	res.FinishedAt = time.Now()

	return res
}

// applyEdit substitutes the editable fields of f from the edit. Identity,
// signals, confidence, and merge history are not editable: confidence stays a
// pure function of the signals captured at ingestion.
func applyEdit(f review.Finding, edit *review.Finding) (review.Finding, error) {
	if edit == nil {
		return review.Finding{}, fmt.Errorf("edited outcome without an edited finding")
	}
	if edit.Severity != "" && !edit.Severity.Valid() {
		return review.Finding{}, fmt.Errorf("edited severity %q not in {P1, P2, P3}", edit.Severity)
	}

	out := f
	if edit.Title != "" {
		out.Title = edit.Title
	}
	if edit.Description != "" {
		out.Description = edit.Description
	}
	if edit.Severity != "" {
		out.Severity = edit.Severity
	}
	if edit.Evidence != nil {
		out.Evidence = append([]string(nil), edit.Evidence...)
	}
	return out, nil
}
