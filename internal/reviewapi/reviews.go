package reviewapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/analyzer"
	"github.com/linnemanlabs/sift/internal/synth"
	"github.com/linnemanlabs/sift/internal/triage"
)

// submitPayload is the request body for POST /api/v1/reviews.
type submitPayload struct {
	Repo         string   `json:"repo"`
	Ref          string   `json:"ref"`
	Diff         string   `json:"diff"`
	Files        []string `json:"files,omitempty"`
	AutoTriage   bool     `json:"auto_triage,omitempty"`
	AutoAcceptAt int      `json:"auto_accept_at,omitempty"`
}

func (a *API) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var p submitPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if p.Repo == "" || p.Ref == "" {
		http.Error(w, `{"error":"repo and ref are required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sift.run.repo", p.Repo),
		attribute.String("sift.run.ref", p.Ref),
	)

	res, err := a.svc.Submit(r.Context(), synth.SubmitRequest{
		Target: analyzer.Target{
			Repo:  p.Repo,
			Ref:   p.Ref,
			Diff:  p.Diff,
			Files: p.Files,
		},
		AutoTriage:   p.AutoTriage,
		AutoAcceptAt: p.AutoAcceptAt,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit review run", "repo", p.Repo, "ref", p.Ref)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if res.Skipped {
		span.SetAttributes(attribute.String("sift.run.skip_reason", res.Reason))
		writeJSON(w, http.StatusOK, map[string]any{
			"skipped": true,
			"reason":  res.Reason,
		})
		return
	}

	span.SetAttributes(attribute.String("sift.run.id", res.ID))
	writeJSON(w, http.StatusAccepted, map[string]any{"id": res.ID})
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	p, ok, err := a.svc.Queue(id)
	if err != nil {
		if errors.Is(err, synth.ErrNoActiveSession) {
			http.Error(w, `{"error":"no active triage session"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to read triage queue", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		// session exists but no finding presented yet
		writeJSON(w, http.StatusOK, map[string]any{"waiting": true})
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDecide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	var d triage.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("sift.decision.outcome", string(d.Outcome)))

	if err := a.svc.Decide(r.Context(), id, d); err != nil {
		if errors.Is(err, synth.ErrNoActiveSession) {
			http.Error(w, `{"error":"no active triage session"}`, http.StatusConflict)
			return
		}
		a.logger.Error(r.Context(), err, "failed to deliver decision", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	if err := a.svc.Cancel(id); err != nil {
		if errors.Is(err, synth.ErrNoActiveSession) {
			http.Error(w, `{"error":"no active triage session"}`, http.StatusConflict)
			return
		}
		a.logger.Error(r.Context(), err, "failed to cancel session", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"cancelling": true})
}
