package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// PipelineHooks receive pipeline observations. Used to wire Prometheus
// metrics without coupling the pipeline to a registry. Nil hooks are skipped.
type PipelineHooks struct {
	OnAnalyzer func(name, status string, findings int, duration float64)
	OnIngest   func(valid, invalid int)
	OnScore    func(confidence int)
	OnDedupe   func(merged, conflicts int)
	OnFilter   func(dropped int)
}

// PipelineResult is the synthesized output of one pipeline run.
type PipelineResult struct {
	Findings []Finding // surviving findings, priority order
	Ingested int
	Invalid  []ValidationError
	Merged   int
	Filtered int
}

// Pipeline runs analyzers concurrently and reduces their output into a
// scored, deduplicated, filtered, sorted triage queue. The reduction phase is
// single-threaded and begins only after every analyzer has returned or timed
// out, so no locking is needed past the join.
type Pipeline struct {
	registry  *analyzer.Registry
	timeout   time.Duration
	threshold int
	logger    log.Logger
	hooks     PipelineHooks
}

// NewPipeline creates a pipeline over the given analyzer registry. timeout
// applies per analyzer; threshold is the confidence cut-off.
func NewPipeline(registry *analyzer.Registry, timeout time.Duration, threshold int, logger log.Logger, hooks PipelineHooks) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{
		registry:  registry,
		timeout:   timeout,
		threshold: threshold,
		logger:    logger,
		hooks:     hooks,
	}
}

// analyzerResult holds the output of a single analyzer invocation.
type analyzerResult struct {
	name     string
	payloads []analyzer.RawFinding
	err      error
}

// Run executes the full synthesis: gather with partial failure tolerance,
// then ingest, score, dedupe, filter, and sort.
func (p *Pipeline) Run(ctx context.Context, target analyzer.Target) *PipelineResult {
	results := p.gather(ctx, target)

	res := &PipelineResult{}
	var findings []Finding
	for _, r := range results {
		if r.err != nil {
			// degraded gracefully: failed analyzer contributes nothing
			continue
		}
		fs, invalid := Ingest(r.name, r.payloads)
		findings = append(findings, fs...)
		res.Invalid = append(res.Invalid, invalid...)
		if p.hooks.OnIngest != nil {
			p.hooks.OnIngest(len(fs), len(invalid))
		}
		for _, v := range invalid {
			p.logger.Warn(ctx, "rejected analyzer payload",
				"analyzer", v.Analyzer,
				"index", v.Index,
				"reason", v.Reason,
			)
		}
	}
	res.Ingested = len(findings)

	ScoreAll(findings)
	if p.hooks.OnScore != nil {
		for _, f := range findings {
			p.hooks.OnScore(f.Confidence)
		}
	}

	deduped := Dedupe(findings)
	conflicts := 0
	for _, f := range deduped {
		if f.Conflict {
			conflicts++
		}
	}
	res.Merged = len(findings) - len(deduped)
	if p.hooks.OnDedupe != nil {
		p.hooks.OnDedupe(res.Merged, conflicts)
	}

	surviving := Filter(deduped, p.threshold)
	res.Filtered = len(deduped) - len(surviving)
	if p.hooks.OnFilter != nil {
		p.hooks.OnFilter(res.Filtered)
	}

	Sort(surviving)
	res.Findings = surviving

	p.logger.Info(ctx, "pipeline complete",
		"ingested", res.Ingested,
		"invalid", len(res.Invalid),
		"merged", res.Merged,
		"conflicts", conflicts,
		"filtered", res.Filtered,
		"surviving", len(surviving),
	)

	return res
}

// gather invokes every registered analyzer in its own goroutine under a
// per-analyzer timeout. A timed-out or failed analyzer contributes an empty
// result set and a warning log, never blocking its peers.
func (p *Pipeline) gather(ctx context.Context, target analyzer.Target) []analyzerResult {
	analyzers := p.registry.All()
	results := make([]analyzerResult, len(analyzers))

	var wg sync.WaitGroup
	for i, a := range analyzers {
		wg.Add(1)
		go func(i int, a analyzer.Analyzer) {
			defer wg.Done()

			actx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			start := time.Now()
			payloads, err := a.Analyze(actx, target)
			elapsed := time.Since(start).Seconds()

			status := "success"
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				status = "timeout"
				p.logger.Warn(ctx, "analyzer timed out",
					"analyzer", a.Name(),
					"timeout", p.timeout.String(),
				)
			case err != nil:
				status = "error"
				p.logger.Warn(ctx, "analyzer failed",
					"analyzer", a.Name(),
					"error", err.Error(),
				)
			}

			if p.hooks.OnAnalyzer != nil {
				p.hooks.OnAnalyzer(a.Name(), status, len(payloads), elapsed)
			}

			results[i] = analyzerResult{name: a.Name(), payloads: payloads, err: err}
		}(i, a)
	}
	wg.Wait()

	return results
}
