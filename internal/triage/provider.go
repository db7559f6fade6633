package triage

import (
	"context"
	"errors"
	"sync"

	"github.com/linnemanlabs/sift/internal/review"
)

// ErrNoPresentation is returned by RemoteProvider.Submit when no finding is
// currently awaiting a decision.
var ErrNoPresentation = errors.New("no finding awaiting a decision")

// AutoProvider is a fully automated decision maker: it accepts findings at or
// above AcceptAt and skips the rest. Conflict-flagged findings are always
// skipped since they exist precisely because a human must adjudicate.
type AutoProvider struct {
	AcceptAt int
}

// Decide implements DecisionProvider.
func (a AutoProvider) Decide(_ context.Context, p Presentation) (Decision, error) {
	if p.Finding.Conflict {
		return Decision{Outcome: review.OutcomeSkipped}, nil
	}
	if p.Finding.Confidence >= a.AcceptAt {
		return Decision{Outcome: review.OutcomeAccepted}, nil
	}
	return Decision{Outcome: review.OutcomeSkipped}, nil
}

// RemoteProvider bridges the session loop to callers that deliver decisions
// asynchronously (the HTTP API). Decide publishes the current presentation
// and blocks until Submit delivers a decision or the session is cancelled.
type RemoteProvider struct {
	mu        sync.Mutex
	current   *Presentation
	decisions chan Decision
}

// NewRemoteProvider creates a provider with no presentation outstanding.
func NewRemoteProvider() *RemoteProvider {
	return &RemoteProvider{decisions: make(chan Decision)}
}

// Decide implements DecisionProvider.
func (r *RemoteProvider) Decide(ctx context.Context, p Presentation) (Decision, error) {
	r.mu.Lock()
	r.current = &p
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}()

	select {
	case d := <-r.decisions:
		return d, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// Current returns the presentation awaiting a decision, if any.
func (r *RemoteProvider) Current() (Presentation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Presentation{}, false
	}
	return *r.current, true
}

// Submit delivers a decision for the currently presented finding. It fails
// with ErrNoPresentation when the session is not waiting on one.
func (r *RemoteProvider) Submit(ctx context.Context, d Decision) error {
	r.mu.Lock()
	waiting := r.current != nil
	r.mu.Unlock()
	if !waiting {
		return ErrNoPresentation
	}

	select {
	case r.decisions <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
