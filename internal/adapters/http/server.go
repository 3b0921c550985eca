// Package http serves a read-only status view over the run store. The
// server is a viewer, not a coordinator: all coordination stays in the
// shared file store, and no route mutates anything.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/ports"
)

// Server exposes run records and metrics over HTTP.
type Server struct {
	store  ports.RunStore
	logger *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a status server over the given store.
func NewServer(store ports.RunStore, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/verification", s.handleVerification)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runSummary is the listing row. The plan reference is derived per request,
// never read from storage.
type runSummary struct {
	ID        string       `json:"id"`
	State     domain.State `json:"state"`
	PlanRef   string       `json:"plan_ref"`
	ClaimedBy string       `json:"claimed_by,omitempty"`
	Updated   time.Time    `json:"updated"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	// Support ?state=active style filters via the hierarchical matcher.
	pattern := r.URL.Query().Get("state")

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		if pattern != "" && !run.State.Matches(pattern) {
			continue
		}
		summaries = append(summaries, runSummary{
			ID:        run.ID,
			State:     run.State,
			PlanRef:   run.PlanRef(),
			ClaimedBy: run.ClaimedBy,
			Updated:   run.Updated,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	s.respond(w, http.StatusOK, summaries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.fail(w, http.StatusNotFound, err)
			return
		}
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, run)
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.fail(w, http.StatusNotFound, err)
			return
		}
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, run.Verification)
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, map[string]string{"error": err.Error()})
}
