// Package synth owns the review run lifecycle: submission dedup, async
// dispatch of the synthesis pipeline, triage session wiring, the task sink
// hand-off, and the transcript. It is the business boundary the HTTP API
// talks to.
package synth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sift/internal/analyzer"
	"github.com/linnemanlabs/sift/internal/review"
	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/synth")

// ErrNoActiveSession is returned for decision operations on a run that is not
// currently triaging interactively.
var ErrNoActiveSession = errors.New("no active triage session for run")

// TaskSink pushes accepted findings to the external tracker. Implemented by
// tracker.Submitter.
type TaskSink interface {
	SubmitAll(ctx context.Context, findings []review.Finding) []review.Submission
}

// SubmitRequest describes one review run to execute.
type SubmitRequest struct {
	Target       analyzer.Target
	AutoTriage   bool // decide with AutoProvider instead of waiting for the API
	AutoAcceptAt int  // auto accept bar; 0 means the filter threshold default
}

// SubmitResult is the outcome of submitting a review run.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Service is the business boundary for review runs.
type Service struct {
	store    review.Store
	pipeline *review.Pipeline
	sink     TaskSink
	metrics  *review.Metrics
	logger   log.Logger

	mu       sync.Mutex
	sessions map[string]*activeSession
}

type activeSession struct {
	provider *triage.RemoteProvider // nil when triage runs automated
	cancel   context.CancelFunc
}

// NewService creates a review run service. metrics may be nil.
func NewService(store review.Store, pipeline *review.Pipeline, sink TaskSink, logger log.Logger, metrics *review.Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		pipeline: pipeline,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*activeSession),
	}
}

// Submit accepts a review run, handling dedup and lifecycle.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	fp := review.Fingerprint(req.Target)

	// dedup: skip if the same target is already being worked
	if existing, ok, err := s.store.GetRunByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && inFlight(existing.Status) {
		s.countSubmit("duplicate")
		return &SubmitResult{Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	run := &review.Run{
		ID:          id,
		Fingerprint: fp,
		Repo:        req.Target.Repo,
		Ref:         req.Target.Ref,
		Status:      review.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.store.PutRun(ctx, run); err != nil {
		return nil, err
	}
	s.countSubmit("accepted")

	// kick off the run async - pass only the ID to avoid sharing the Run pointer.
	go s.runReview(context.WithoutCancel(ctx), id, req)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves a review run by ID.
func (s *Service) Get(ctx context.Context, id string) (*review.Run, bool, error) {
	return s.store.GetRun(ctx, id)
}

// Findings lists a run's surviving findings in priority order.
func (s *Service) Findings(ctx context.Context, id string) ([]review.Finding, error) {
	return s.store.ListFindings(ctx, id)
}

// Queue returns the finding currently awaiting a triage decision for the run.
func (s *Service) Queue(id string) (triage.Presentation, bool, error) {
	s.mu.Lock()
	as, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok || as.provider == nil {
		return triage.Presentation{}, false, ErrNoActiveSession
	}
	p, ok := as.provider.Current()
	return p, ok, nil
}

// Decide delivers a triage decision for the run's presented finding.
func (s *Service) Decide(ctx context.Context, id string, d triage.Decision) error {
	s.mu.Lock()
	as, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok || as.provider == nil {
		return ErrNoActiveSession
	}
	return as.provider.Submit(ctx, d)
}

// Cancel stops the run's triage session between findings. Recorded decisions
// are kept and the run finishes as incomplete.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	as, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return ErrNoActiveSession
	}
	as.cancel()
	return nil
}

func inFlight(st review.Status) bool {
	return st == review.StatusPending || st == review.StatusAnalyzing || st == review.StatusTriaging
}

func (s *Service) runReview(ctx context.Context, id string, req SubmitRequest) {
	L := s.logger.With("run_id", id, "repo", req.Target.Repo, "ref", req.Target.Ref)
	start := time.Now()

	ctx, span := tracer.Start(ctx, "review.run", trace.WithAttributes(
		attribute.String("sift.run.id", id),
		attribute.String("sift.repo", req.Target.Repo),
		attribute.String("sift.ref", req.Target.Ref),
	))
	defer span.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var provider triage.DecisionProvider
	active := &activeSession{cancel: cancel}
	if req.AutoTriage {
		bar := req.AutoAcceptAt
		if bar <= 0 {
			bar = review.DefaultThreshold
		}
		provider = triage.AutoProvider{AcceptAt: bar}
	} else {
		rp := triage.NewRemoteProvider()
		active.provider = rp
		provider = rp
	}

	s.mu.Lock()
	s.sessions[id] = active
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}()

	run, ok, err := s.store.GetRun(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run for review")
		return
	}

	setStatus := func(st review.Status) bool {
		run.Status = st
		if err := s.store.PutRun(ctx, run); err != nil {
			L.Error(ctx, err, "failed to persist run status", "status", string(st))
			return false
		}
		return true
	}

	if !setStatus(review.StatusAnalyzing) {
		return
	}

	pr := s.pipeline.Run(runCtx, req.Target)

	if err := s.store.PutFindings(ctx, id, pr.Findings); err != nil {
		L.Error(ctx, err, "failed to persist findings")
		run.Error = err.Error()
		setStatus(review.StatusFailed)
		return
	}
	if !setStatus(review.StatusTriaging) {
		return
	}

	session := triage.NewSession(pr.Findings, L)
	sres := session.Run(runCtx, provider)

	for i := range sres.Decisions {
		if err := s.store.PutDecision(ctx, id, &sres.Decisions[i]); err != nil {
			L.Error(ctx, err, "failed to persist decision", "finding_id", sres.Decisions[i].FindingID)
		}
		if s.metrics != nil {
			s.metrics.DecisionsTotal.WithLabelValues(string(sres.Decisions[i].Outcome)).Inc()
		}
	}

	// submissions run on the uncancelled context: decisions already made are
	// never lost to a session cancellation
	subs := s.sink.SubmitAll(ctx, sres.Accepted)
	failedTasks := 0
	var externalIDs []string
	for i := range subs {
		if err := s.store.PutSubmission(ctx, id, &subs[i]); err != nil {
			L.Error(ctx, err, "failed to persist submission", "finding_id", subs[i].FindingID)
		}
		if subs[i].ExternalID != "" {
			externalIDs = append(externalIDs, subs[i].ExternalID)
			s.countSubmission("created", subs[i].Attempts)
		} else {
			failedTasks++
			s.countSubmission("failed", subs[i].Attempts)
			L.Warn(ctx, "submission exhausted retries; preserved for manual resubmission",
				"finding_id", subs[i].FindingID,
				"attempts", subs[i].Attempts,
				"last_error", subs[i].LastError,
			)
		}
	}

	run.Transcript = &review.Transcript{
		TotalIngested: pr.Ingested,
		Invalid:       len(pr.Invalid),
		Surviving:     len(pr.Findings),
		Buckets:       review.BucketConfidence(pr.Findings),
		Accepted:      sres.Counts.Accepted,
		Skipped:       sres.Counts.Skipped,
		Edited:        sres.Counts.Edited,
		ExternalIDs:   externalIDs,
		FailedTasks:   failedTasks,
		Incomplete:    sres.Incomplete,
	}

	status := review.StatusComplete
	if sres.Incomplete {
		status = review.StatusIncomplete
	}
	run.CompletedAt = time.Now()
	run.Duration = time.Since(start).Seconds()
	setStatus(status)

	span.SetAttributes(
		attribute.String("sift.run.status", string(status)),
		attribute.Int("sift.findings.surviving", len(pr.Findings)),
		attribute.Int("sift.decisions.accepted", sres.Counts.Accepted),
	)

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(status)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(status)).Observe(run.Duration)
	}

	L.Info(ctx, "review run finished",
		"status", string(status),
		"duration", run.Duration,
		"surviving", len(pr.Findings),
		"accepted", sres.Counts.Accepted,
		"skipped", sres.Counts.Skipped,
		"edited", sres.Counts.Edited,
		"tasks_created", len(externalIDs),
		"tasks_failed", failedTasks,
	)
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countSubmission(result string, attempts int) {
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(result).Inc()
		s.metrics.SubmissionAttempts.Observe(float64(attempts))
	}
}
