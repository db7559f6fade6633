package review

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the synthesis subsystem.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	AnalyzerRuns       *prometheus.CounterVec
	AnalyzerDuration   *prometheus.HistogramVec
	AnalyzerFindings   *prometheus.HistogramVec
	FindingsIngested   prometheus.Counter
	PayloadsRejected   prometheus.Counter
	FindingConfidence  prometheus.Histogram
	FindingsMerged     prometheus.Counter
	ConflictsFlagged   prometheus.Counter
	FindingsFiltered   prometheus.Counter
	DecisionsTotal     *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionAttempts prometheus.Histogram
	SubmitsTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns synthesis metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_runs_total",
			Help: "Total review runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_run_duration_seconds",
			Help:    "Duration of review runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}, []string{"status"}),
		AnalyzerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_analyzer_runs_total",
			Help: "Total analyzer invocations by analyzer and outcome.",
		}, []string{"analyzer", "status"}),
		AnalyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_analyzer_duration_seconds",
			Help:    "Duration of analyzer invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"analyzer"}),
		AnalyzerFindings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_analyzer_findings",
			Help:    "Candidate findings returned per analyzer invocation.",
			Buckets: prometheus.LinearBuckets(0, 2, 16), // 0 .. 30
		}, []string{"analyzer"}),
		FindingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_findings_ingested_total",
			Help: "Total analyzer payloads that passed validation.",
		}),
		PayloadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_payloads_rejected_total",
			Help: "Total analyzer payloads rejected by validation.",
		}),
		FindingConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_finding_confidence",
			Help:    "Confidence scores assigned to ingested findings.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		FindingsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_findings_merged_total",
			Help: "Total findings absorbed into a corroborating duplicate.",
		}),
		ConflictsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_conflicts_flagged_total",
			Help: "Total findings flagged for contradictory severities.",
		}),
		FindingsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_findings_filtered_total",
			Help: "Total findings dropped below the confidence threshold.",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_triage_decisions_total",
			Help: "Total triage decisions by outcome.",
		}, []string{"outcome"}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_task_submissions_total",
			Help: "Total tracker submissions by result.",
		}, []string{"result"}),
		SubmissionAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_task_submission_attempts",
			Help:    "Tracker call attempts per submission.",
			Buckets: prometheus.LinearBuckets(1, 1, 10), // 1 .. 10
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_submits_total",
			Help: "Total review submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.AnalyzerRuns,
		m.AnalyzerDuration,
		m.AnalyzerFindings,
		m.FindingsIngested,
		m.PayloadsRejected,
		m.FindingConfidence,
		m.FindingsMerged,
		m.ConflictsFlagged,
		m.FindingsFiltered,
		m.DecisionsTotal,
		m.SubmissionsTotal,
		m.SubmissionAttempts,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns PipelineHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() PipelineHooks {
	return PipelineHooks{
		OnAnalyzer: func(name, status string, findings int, duration float64) {
			m.AnalyzerRuns.WithLabelValues(name, status).Inc()
			m.AnalyzerDuration.WithLabelValues(name).Observe(duration)
			m.AnalyzerFindings.WithLabelValues(name).Observe(float64(findings))
		},
		OnIngest: func(valid, invalid int) {
			m.FindingsIngested.Add(float64(valid))
			m.PayloadsRejected.Add(float64(invalid))
		},
		OnScore: func(confidence int) {
			m.FindingConfidence.Observe(float64(confidence))
		},
		OnDedupe: func(merged, conflicts int) {
			m.FindingsMerged.Add(float64(merged))
			m.ConflictsFlagged.Add(float64(conflicts))
		},
		OnFilter: func(dropped int) {
			m.FindingsFiltered.Add(float64(dropped))
		},
	}
}
