package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/review"
)

const defaultRetryInterval = 500 * time.Millisecond

// Submitter pushes accepted findings to the tracker with exponential backoff.
// Each submission is retried independently up to MaxAttempts; exhausted
// submissions are returned to the caller with their attempt count and last
// error intact, never dropped.
type Submitter struct {
	tracker       Tracker
	maxAttempts   int
	retryInterval time.Duration
	logger        log.Logger
}

// NewSubmitter creates a submitter. maxAttempts below 1 is treated as 1.
func NewSubmitter(t Tracker, maxAttempts int, logger log.Logger) *Submitter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Submitter{
		tracker:       t,
		maxAttempts:   maxAttempts,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// SetRetryInterval overrides the initial backoff interval. Tests shrink it.
func (s *Submitter) SetRetryInterval(d time.Duration) {
	s.retryInterval = d
}

// Submit pushes one finding and returns its submission record. The record
// carries ExternalID on success, or Attempts plus LastError on terminal
// failure.
func (s *Submitter) Submit(ctx context.Context, f review.Finding) review.Submission {
	sub := review.Submission{FindingID: f.ID}

	task, err := BuildTask(f)
	if err != nil {
		sub.LastError = err.Error()
		sub.UpdatedAt = time.Now()
		return sub
	}

	op := func() (string, error) {
		sub.Attempts++
		id, err := s.tracker.CreateTask(ctx, task)
		if err != nil {
			sub.LastError = err.Error()
			s.logger.Warn(ctx, "tracker submission failed",
				"finding_id", f.ID,
				"attempt", sub.Attempts,
				"error", err.Error(),
			)
			return "", err
		}
		return id, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval

	id, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(s.maxAttempts)),
	)
	sub.UpdatedAt = time.Now()
	if err != nil {
		// retries exhausted: surfaced to the caller, preserved for resubmission
		return sub
	}

	sub.ExternalID = id
	sub.LastError = ""
	s.logger.Info(ctx, "task created",
		"finding_id", f.ID,
		"external_id", id,
		"attempts", sub.Attempts,
	)
	return sub
}

// SubmitAll pushes findings concurrently; submissions retry independently so
// one stuck task never blocks the others. Results are returned in input
// order.
func (s *Submitter) SubmitAll(ctx context.Context, findings []review.Finding) []review.Submission {
	subs := make([]review.Submission, len(findings))

	var wg sync.WaitGroup
	for i, f := range findings {
		wg.Add(1)
		go func(i int, f review.Finding) {
			defer wg.Done()
			subs[i] = s.Submit(ctx, f)
		}(i, f)
	}
	wg.Wait()

	return subs
}
