package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/review"
)

func TestAutoProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		finding review.Finding
		want    review.Outcome
	}{
		{
			name:    "at the bar accepts",
			finding: review.Finding{Confidence: 80},
			want:    review.OutcomeAccepted,
		},
		{
			name:    "above the bar accepts",
			finding: review.Finding{Confidence: 100},
			want:    review.OutcomeAccepted,
		},
		{
			name:    "below the bar skips",
			finding: review.Finding{Confidence: 79},
			want:    review.OutcomeSkipped,
		},
		{
			name:    "conflict always skips",
			finding: review.Finding{Confidence: 100, Conflict: true},
			want:    review.OutcomeSkipped,
		},
	}

	p := AutoProvider{AcceptAt: 80}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := p.Decide(context.Background(), Presentation{Finding: tt.finding})
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Outcome != tt.want {
				t.Errorf("Outcome = %q, want %q", d.Outcome, tt.want)
			}
		})
	}
}

func TestRemoteProvider_RoundTrip(t *testing.T) {
	t.Parallel()

	rp := NewRemoteProvider()
	pres := Presentation{Finding: review.Finding{ID: "01A"}, Total: 1}

	type decideResult struct {
		d   Decision
		err error
	}
	done := make(chan decideResult, 1)
	go func() {
		d, err := rp.Decide(context.Background(), pres)
		done <- decideResult{d, err}
	}()

	// wait for the presentation to publish
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := rp.Current(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("presentation never published")
		case <-time.After(time.Millisecond):
		}
	}

	got, ok := rp.Current()
	if !ok || got.Finding.ID != "01A" {
		t.Fatalf("Current() = %+v, %v, want presentation 01A", got, ok)
	}

	if err := rp.Submit(context.Background(), Decision{Outcome: review.OutcomeAccepted}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("Decide: %v", res.err)
	}
	if res.d.Outcome != review.OutcomeAccepted {
		t.Errorf("Outcome = %q, want accepted", res.d.Outcome)
	}

	// presentation is cleared once decided
	if _, ok := rp.Current(); ok {
		t.Error("Current() still has a presentation after the decision")
	}
}

func TestRemoteProvider_SubmitWithoutPresentation(t *testing.T) {
	t.Parallel()

	rp := NewRemoteProvider()
	err := rp.Submit(context.Background(), Decision{Outcome: review.OutcomeAccepted})
	if !errors.Is(err, ErrNoPresentation) {
		t.Errorf("Submit = %v, want ErrNoPresentation", err)
	}
}

func TestRemoteProvider_DecideHonorsCancellation(t *testing.T) {
	t.Parallel()

	rp := NewRemoteProvider()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := rp.Decide(ctx, Presentation{Finding: review.Finding{ID: "01A"}})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Decide = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Decide did not return after cancellation")
	}
}

func TestRemoteProvider_SubmitHonorsCancellation(t *testing.T) {
	t.Parallel()

	rp := NewRemoteProvider()

	// publish a presentation but never consume the decision
	rp.mu.Lock()
	rp.current = &Presentation{Finding: review.Finding{ID: "01A"}}
	rp.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rp.Submit(ctx, Decision{Outcome: review.OutcomeAccepted})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit = %v, want context.Canceled", err)
	}
}
