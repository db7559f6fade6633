package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/sift/internal/review"
)

// scriptedProvider replays decisions in order and records what it was shown.
type scriptedProvider struct {
	decisions []Decision
	errs      []error
	seen      []Presentation
	cursor    int
}

func (s *scriptedProvider) Decide(_ context.Context, p Presentation) (Decision, error) {
	s.seen = append(s.seen, p)
	if s.cursor >= len(s.decisions) {
		return Decision{}, errors.New("script exhausted")
	}
	i := s.cursor
	s.cursor++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.decisions[i], err
}

func queue(ids ...string) []review.Finding {
	fs := make([]review.Finding, len(ids))
	for i, id := range ids {
		fs[i] = review.Finding{
			ID:         id,
			Title:      "finding " + id,
			Severity:   review.SeverityP2,
			Confidence: 85,
		}
	}
	return fs
}

func TestSession_AcceptAndSkip(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeAccepted},
		{Outcome: review.OutcomeSkipped},
	}}

	s := NewSession(queue("01A", "01B"), nil)
	res := s.Run(context.Background(), p)

	if res.Incomplete {
		t.Error("Incomplete = true, want completed session")
	}
	if res.Counts != (Counts{Accepted: 1, Skipped: 1}) {
		t.Errorf("Counts = %+v, want 1 accepted 1 skipped", res.Counts)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].ID != "01A" {
		t.Errorf("Accepted = %+v, want [01A]", res.Accepted)
	}
	if len(res.Decisions) != 2 {
		t.Errorf("got %d decisions, want 2", len(res.Decisions))
	}
	if len(res.Undecided) != 0 {
		t.Errorf("Undecided = %+v, want none", res.Undecided)
	}
}

func TestSession_PresentationCarriesFullRecord(t *testing.T) {
	t.Parallel()

	f := review.Finding{
		ID:          "01A",
		Title:       "sql injection",
		Description: "user input reaches query",
		Severity:    review.SeverityP1,
		File:        "db/query.go",
		Line:        42,
		Evidence:    []string{"excerpt line"},
		Confidence:  90,
		Conflict:    true,
	}

	p := &scriptedProvider{decisions: []Decision{{Outcome: review.OutcomeSkipped}}}
	s := NewSession([]review.Finding{f}, nil)
	s.Run(context.Background(), p)

	if len(p.seen) != 1 {
		t.Fatalf("provider saw %d presentations, want 1", len(p.seen))
	}
	got := p.seen[0]
	if got.Finding.Confidence != 90 || got.Finding.File != "db/query.go" || !got.Finding.Conflict {
		t.Errorf("presentation = %+v, want the finding verbatim", got.Finding)
	}
	if got.Index != 0 || got.Total != 1 {
		t.Errorf("index/total = %d/%d, want 0/1", got.Index, got.Total)
	}
}

func TestSession_EditRePresentsBeforeTerminal(t *testing.T) {
	t.Parallel()

	edit := &review.Finding{Title: "corrected title", Severity: review.SeverityP2}
	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeEdited, Edited: edit},
		{Outcome: review.OutcomeAccepted},
	}}

	fs := queue("01A")
	fs[0].Severity = review.SeverityP3
	s := NewSession(fs, nil)
	res := s.Run(context.Background(), p)

	// the edited copy was re-presented before the accept
	if len(p.seen) != 2 {
		t.Fatalf("provider saw %d presentations, want 2 (original + edited)", len(p.seen))
	}
	if p.seen[1].Finding.Title != "corrected title" || p.seen[1].Finding.Severity != review.SeverityP2 {
		t.Errorf("re-presented finding = %+v, want the edit applied", p.seen[1].Finding)
	}

	if res.Counts != (Counts{Accepted: 1, Edited: 1}) {
		t.Errorf("Counts = %+v, want 1 accepted 1 edited", res.Counts)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].Title != "corrected title" {
		t.Errorf("Accepted = %+v, want the post-edit finding", res.Accepted)
	}

	// decision history records the edit before the accept
	if len(res.Decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(res.Decisions))
	}
	if res.Decisions[0].Outcome != review.OutcomeEdited || res.Decisions[0].Edited == nil {
		t.Errorf("decisions[0] = %+v, want edited with payload", res.Decisions[0])
	}
	if res.Decisions[1].Outcome != review.OutcomeAccepted {
		t.Errorf("decisions[1] = %+v, want accepted", res.Decisions[1])
	}
}

func TestSession_EditCannotChangeConfidenceOrIdentity(t *testing.T) {
	t.Parallel()

	edit := &review.Finding{
		ID:         "FORGED",
		Title:      "new title",
		Confidence: 100,
		Signals:    map[string]bool{"location": true},
	}
	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeEdited, Edited: edit},
		{Outcome: review.OutcomeAccepted},
	}}

	fs := queue("01A")
	fs[0].Confidence = 85
	s := NewSession(fs, nil)
	res := s.Run(context.Background(), p)

	got := res.Accepted[0]
	if got.ID != "01A" {
		t.Errorf("ID = %q, want identity preserved", got.ID)
	}
	if got.Confidence != 85 {
		t.Errorf("Confidence = %d, want 85 untouched by the edit", got.Confidence)
	}
	if got.Signals != nil {
		t.Errorf("Signals = %v, want untouched", got.Signals)
	}
	if got.Title != "new title" {
		t.Errorf("Title = %q, want the editable field applied", got.Title)
	}
}

func TestSession_InvalidEditRePresentsOriginal(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeEdited, Edited: &review.Finding{Severity: review.Severity("SEV-1")}},
		{Outcome: review.OutcomeEdited}, // nil edit payload
		{Outcome: review.OutcomeSkipped},
	}}

	s := NewSession(queue("01A"), nil)
	res := s.Run(context.Background(), p)

	if res.Counts.Edited != 0 {
		t.Errorf("Edited = %d, want 0 for rejected edits", res.Counts.Edited)
	}
	if res.Counts.Skipped != 1 {
		t.Errorf("Skipped = %d, want the original finally skipped", res.Counts.Skipped)
	}
	// rejected edits left the original in place
	if p.seen[2].Finding.Severity != review.SeverityP2 {
		t.Errorf("final presentation severity = %q, want original P2", p.seen[2].Finding.Severity)
	}
}

func TestSession_CancellationBetweenFindings(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeAccepted},
	}}

	// wrap to cancel after the first decision lands
	wrapped := decideFunc(func(c context.Context, pr Presentation) (Decision, error) {
		d, err := p.Decide(c, pr)
		cancel()
		return d, err
	})

	s := NewSession(queue("01A", "01B", "01C"), nil)
	res := s.Run(ctx, wrapped)

	if !res.Incomplete {
		t.Error("Incomplete = false, want true after cancellation")
	}
	if res.Counts.Accepted != 1 {
		t.Errorf("Accepted = %d, want the pre-cancel decision kept", res.Counts.Accepted)
	}
	if len(res.Undecided) != 2 {
		t.Errorf("Undecided = %d findings, want 2", len(res.Undecided))
	}
}

func TestSession_ProviderErrorStopsSession(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{
		decisions: []Decision{{Outcome: review.OutcomeAccepted}, {}},
		errs:      []error{nil, errors.New("provider broke")},
	}

	s := NewSession(queue("01A", "01B", "01C"), nil)
	res := s.Run(context.Background(), p)

	if !res.Incomplete {
		t.Error("Incomplete = false, want true after provider error")
	}
	if res.Counts.Accepted != 1 {
		t.Errorf("Accepted = %d, want earlier decisions preserved", res.Counts.Accepted)
	}
}

func TestSession_EmptyQueue(t *testing.T) {
	t.Parallel()

	s := NewSession(nil, nil)
	res := s.Run(context.Background(), &scriptedProvider{})

	if res.Incomplete {
		t.Error("Incomplete = true, want complete for an empty queue")
	}
	if len(res.Decisions) != 0 {
		t.Errorf("Decisions = %+v, want none", res.Decisions)
	}
}

func TestSession_QueueIsCopied(t *testing.T) {
	t.Parallel()

	fs := queue("01A")
	p := &scriptedProvider{decisions: []Decision{
		{Outcome: review.OutcomeEdited, Edited: &review.Finding{Title: "changed"}},
		{Outcome: review.OutcomeAccepted},
	}}

	NewSession(fs, nil).Run(context.Background(), p)

	if fs[0].Title != "finding 01A" {
		t.Errorf("caller slice title = %q, edits must not leak out", fs[0].Title)
	}
}

type decideFunc func(context.Context, Presentation) (Decision, error)

func (f decideFunc) Decide(ctx context.Context, p Presentation) (Decision, error) {
	return f(ctx, p)
}
