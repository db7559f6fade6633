// Package pgstore provides a PostgreSQL implementation of review.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/review"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/review/pgstore")

//go:embed schema.sql
var schema string

// Store persists review runs and their artifacts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// pool's lifecycle belongs to the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

const runColumns = `id, fingerprint, repo, ref, status, error, transcript, created_at, completed_at, duration_s`

// GetRun retrieves a review run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*review.Run, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetRun", "SELECT")
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM review_runs WHERE id = $1`
	r, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, fail(span, err)
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetRunByFingerprint retrieves the most recent run for a target fingerprint.
func (s *Store) GetRunByFingerprint(ctx context.Context, fingerprint string) (*review.Run, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetRunByFingerprint", "SELECT")
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM review_runs WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanRun(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		return nil, false, fail(span, err)
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// PutRun inserts or updates a review run.
func (s *Store) PutRun(ctx context.Context, r *review.Run) error {
	ctx, span := startSpan(ctx, "pgstore.PutRun", "INSERT")
	defer span.End()

	var transcript []byte
	if r.Transcript != nil {
		var err error
		transcript, err = json.Marshal(r.Transcript)
		if err != nil {
			return fail(span, fmt.Errorf("marshal transcript: %w", err))
		}
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `
		INSERT INTO review_runs (id, fingerprint, repo, ref, status, error, transcript, created_at, completed_at, duration_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			transcript = EXCLUDED.transcript,
			completed_at = EXCLUDED.completed_at,
			duration_s = EXCLUDED.duration_s`
	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Fingerprint, r.Repo, r.Ref, string(r.Status), r.Error,
		transcript, r.CreatedAt, completedAt, r.Duration)
	if err != nil {
		return fail(span, fmt.Errorf("put run: %w", err))
	}
	return nil
}

func scanRun(row pgx.Row) (*review.Run, error) {
	var (
		r           review.Run
		status      string
		transcript  []byte
		completedAt *time.Time
		duration    *float64
	)
	err := row.Scan(&r.ID, &r.Fingerprint, &r.Repo, &r.Ref, &status, &r.Error,
		&transcript, &r.CreatedAt, &completedAt, &duration)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Status = review.Status(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}
	if duration != nil {
		r.Duration = *duration
	}
	if len(transcript) > 0 {
		r.Transcript = &review.Transcript{}
		if err := json.Unmarshal(transcript, r.Transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	return &r, nil
}

// PutFindings replaces the run's surviving findings.
func (s *Store) PutFindings(ctx context.Context, runID string, findings []review.Finding) error {
	ctx, span := startSpan(ctx, "pgstore.PutFindings", "INSERT")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail(span, fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM findings WHERE run_id = $1`, runID); err != nil {
		return fail(span, fmt.Errorf("clear findings: %w", err))
	}

	query := `
		INSERT INTO findings (id, run_id, position, source_analyzer, category, severity,
			file, line, title, description, evidence, signals, confidence, merged_from, conflict)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for i, f := range findings {
		evidence, err := json.Marshal(f.Evidence)
		if err != nil {
			return fail(span, fmt.Errorf("marshal evidence: %w", err))
		}
		signals, err := json.Marshal(f.Signals)
		if err != nil {
			return fail(span, fmt.Errorf("marshal signals: %w", err))
		}
		mergedFrom, err := json.Marshal(f.MergedFrom)
		if err != nil {
			return fail(span, fmt.Errorf("marshal merged_from: %w", err))
		}
		if _, err := tx.Exec(ctx, query,
			f.ID, runID, i, f.SourceAnalyzer, string(f.Category), string(f.Severity),
			f.File, f.Line, f.Title, f.Description, evidence, signals,
			f.Confidence, mergedFrom, f.Conflict); err != nil {
			return fail(span, fmt.Errorf("insert finding: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ListFindings returns the run's surviving findings in priority order.
func (s *Store) ListFindings(ctx context.Context, runID string) ([]review.Finding, error) {
	ctx, span := startSpan(ctx, "pgstore.ListFindings", "SELECT")
	defer span.End()

	query := `
		SELECT id, source_analyzer, category, severity, file, line, title, description,
			evidence, signals, confidence, merged_from, conflict
		FROM findings WHERE run_id = $1 ORDER BY position`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list findings: %w", err))
	}
	defer rows.Close()

	var out []review.Finding
	for rows.Next() {
		var (
			f          review.Finding
			category   string
			severity   string
			evidence   []byte
			signals    []byte
			mergedFrom []byte
		)
		if err := rows.Scan(&f.ID, &f.SourceAnalyzer, &category, &severity, &f.File, &f.Line,
			&f.Title, &f.Description, &evidence, &signals, &f.Confidence, &mergedFrom, &f.Conflict); err != nil {
			return nil, fail(span, fmt.Errorf("scan finding: %w", err))
		}
		f.Category = review.Category(category)
		f.Severity = review.Severity(severity)
		if err := unmarshalInto(evidence, &f.Evidence); err != nil {
			return nil, fail(span, err)
		}
		if err := unmarshalInto(signals, &f.Signals); err != nil {
			return nil, fail(span, err)
		}
		if err := unmarshalInto(mergedFrom, &f.MergedFrom); err != nil {
			return nil, fail(span, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate findings: %w", err))
	}
	return out, nil
}

// PutDecision appends a triage decision to the run's history.
func (s *Store) PutDecision(ctx context.Context, runID string, d *review.Decision) error {
	ctx, span := startSpan(ctx, "pgstore.PutDecision", "INSERT")
	defer span.End()

	var edited []byte
	if d.Edited != nil {
		var err error
		edited, err = json.Marshal(d.Edited)
		if err != nil {
			return fail(span, fmt.Errorf("marshal edited finding: %w", err))
		}
	}

	query := `
		INSERT INTO triage_decisions (run_id, finding_id, outcome, edited, decided_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, runID, d.FindingID, string(d.Outcome), edited, d.DecidedAt); err != nil {
		return fail(span, fmt.Errorf("put decision: %w", err))
	}
	return nil
}

// ListDecisions returns the run's decision history in recorded order.
func (s *Store) ListDecisions(ctx context.Context, runID string) ([]review.Decision, error) {
	ctx, span := startSpan(ctx, "pgstore.ListDecisions", "SELECT")
	defer span.End()

	query := `SELECT finding_id, outcome, edited, decided_at FROM triage_decisions WHERE run_id = $1 ORDER BY seq`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list decisions: %w", err))
	}
	defer rows.Close()

	var out []review.Decision
	for rows.Next() {
		var (
			d       review.Decision
			outcome string
			edited  []byte
		)
		if err := rows.Scan(&d.FindingID, &outcome, &edited, &d.DecidedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan decision: %w", err))
		}
		d.Outcome = review.Outcome(outcome)
		if len(edited) > 0 {
			d.Edited = &review.Finding{}
			if err := json.Unmarshal(edited, d.Edited); err != nil {
				return nil, fail(span, fmt.Errorf("unmarshal edited finding: %w", err))
			}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate decisions: %w", err))
	}
	return out, nil
}

// PutSubmission upserts a task submission keyed by finding ID, preserving
// attempt history for retried submissions.
func (s *Store) PutSubmission(ctx context.Context, runID string, sub *review.Submission) error {
	ctx, span := startSpan(ctx, "pgstore.PutSubmission", "INSERT")
	defer span.End()

	query := `
		INSERT INTO task_submissions (run_id, finding_id, external_id, attempts, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, finding_id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, runID, sub.FindingID, sub.ExternalID, sub.Attempts, sub.LastError, sub.UpdatedAt); err != nil {
		return fail(span, fmt.Errorf("put submission: %w", err))
	}
	return nil
}

// ListSubmissions returns the run's task submissions.
func (s *Store) ListSubmissions(ctx context.Context, runID string) ([]review.Submission, error) {
	ctx, span := startSpan(ctx, "pgstore.ListSubmissions", "SELECT")
	defer span.End()

	query := `SELECT finding_id, external_id, attempts, last_error, updated_at FROM task_submissions WHERE run_id = $1 ORDER BY finding_id`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list submissions: %w", err))
	}
	defer rows.Close()

	var out []review.Submission
	for rows.Next() {
		var sub review.Submission
		if err := rows.Scan(&sub.FindingID, &sub.ExternalID, &sub.Attempts, &sub.LastError, &sub.UpdatedAt); err != nil {
			return nil, fail(span, fmt.Errorf("scan submission: %w", err))
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate submissions: %w", err))
	}
	return out, nil
}

func unmarshalInto[T any](raw []byte, dst *T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal column: %w", err)
	}
	return nil
}
