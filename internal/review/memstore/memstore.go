// Package memstore provides an in-memory implementation of review.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/review"
)

// Store holds review runs and their artifacts in memory. Suitable for
// dev/testing.
type Store struct {
	mu          sync.RWMutex
	runs        map[string]*review.Run                  // run ID -> run
	seen        map[string]string                       // target fingerprint -> run ID (dedup)
	findings    map[string][]review.Finding             // run ID -> surviving findings
	decisions   map[string][]review.Decision            // run ID -> decision history
	submissions map[string]map[string]review.Submission // run ID -> finding ID -> submission
	subOrder    map[string][]string                     // run ID -> finding IDs in first-put order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		runs:        make(map[string]*review.Run),
		seen:        make(map[string]string),
		findings:    make(map[string][]review.Finding),
		decisions:   make(map[string][]review.Decision),
		submissions: make(map[string]map[string]review.Submission),
		subOrder:    make(map[string][]string),
	}
}

// GetRun retrieves a run by its ID. Returns a copy.
func (s *Store) GetRun(_ context.Context, id string) (*review.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetRunByFingerprint retrieves the run for a target fingerprint, for
// deduplication. Returns a copy.
func (s *Store) GetRunByFingerprint(_ context.Context, fp string) (*review.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	r := s.runs[id]
	cp := *r
	return &cp, true, nil
}

// PutRun stores a copy of the run.
func (s *Store) PutRun(_ context.Context, r *review.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	s.seen[r.Fingerprint] = r.ID
	return nil
}

// PutFindings replaces the run's surviving findings.
func (s *Store) PutFindings(_ context.Context, runID string, findings []review.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings[runID] = append([]review.Finding(nil), findings...)
	return nil
}

// ListFindings returns the run's surviving findings in stored order.
func (s *Store) ListFindings(_ context.Context, runID string) ([]review.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]review.Finding(nil), s.findings[runID]...), nil
}

// PutDecision appends a triage decision to the run's history.
func (s *Store) PutDecision(_ context.Context, runID string, d *review.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[runID] = append(s.decisions[runID], *d)
	return nil
}

// ListDecisions returns the run's decision history in recorded order.
func (s *Store) ListDecisions(_ context.Context, runID string) ([]review.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]review.Decision(nil), s.decisions[runID]...), nil
}

// PutSubmission upserts a task submission keyed by finding ID, so a retried
// submission overwrites its earlier attempt record instead of duplicating it.
func (s *Store) PutSubmission(_ context.Context, runID string, sub *review.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.submissions[runID]
	if !ok {
		m = make(map[string]review.Submission)
		s.submissions[runID] = m
	}
	if _, exists := m[sub.FindingID]; !exists {
		s.subOrder[runID] = append(s.subOrder[runID], sub.FindingID)
	}
	m[sub.FindingID] = *sub
	return nil
}

// ListSubmissions returns the run's submissions in first-put order.
func (s *Store) ListSubmissions(_ context.Context, runID string) ([]review.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]review.Submission, 0, len(s.subOrder[runID]))
	for _, fid := range s.subOrder[runID] {
		out = append(out, s.submissions[runID][fid])
	}
	return out, nil
}
