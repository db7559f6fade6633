// Package reviewapi exposes review runs over HTTP.
package reviewapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/review"
	"github.com/linnemanlabs/sift/internal/synth"
	"github.com/linnemanlabs/sift/internal/triage"
)

// ReviewService defines the business operations reviewapi needs.
type ReviewService interface {
	Submit(ctx context.Context, req synth.SubmitRequest) (*synth.SubmitResult, error)
	Get(ctx context.Context, id string) (*review.Run, bool, error)
	Findings(ctx context.Context, id string) ([]review.Finding, error)
	Queue(id string) (triage.Presentation, bool, error)
	Decide(ctx context.Context, id string, d triage.Decision) error
	Cancel(id string) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ReviewService
	auth   func(http.Handler) http.Handler
}

// New creates a new API handler. auth guards mutating routes; nil disables it.
func New(logger log.Logger, svc ReviewService, auth func(http.Handler) http.Handler) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("review service is required"))
	}
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	return &API{
		logger: logger,
		svc:    svc,
		auth:   auth,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Get("/{id}", a.handleGetRun)
		r.Get("/{id}/findings", a.handleListFindings)
		r.Get("/{id}/queue", a.handleQueue)

		r.Group(func(r chi.Router) {
			r.Use(a.auth)
			r.Post("/", a.handleSubmitRun)
			r.Post("/{id}/decisions", a.handleDecide)
			r.Post("/{id}/cancel", a.handleCancel)
		})
	})
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	run, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get review run", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("sift.run.status", string(run.Status)))

	writeJSON(w, http.StatusOK, run)
}

func (a *API) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	// 404 on unknown runs; an empty finding list on a known run is a 200.
	if _, ok, err := a.svc.Get(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "failed to get review run", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	findings, err := a.svc.Findings(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list findings", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if findings == nil {
		findings = []review.Finding{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"findings": findings})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
