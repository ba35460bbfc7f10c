// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/champsim/internal/adapters/repository"
	service "github.com/okian/champsim/internal/app"
	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	HealthDependencies
	SummaryDependencies
	OutcomeDependencies
	TieDependencies
	ProjectDependencies
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	summaryHandler  *SummaryHandler
	outcomesHandler *OutcomesHandler
	tiesHandler     *TiesHandler
	projectHandler  *ProjectHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// number of rows a single listing may return.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		summaryHandler:  NewSummaryHandler(deps),
		outcomesHandler: NewOutcomesHandler(deps, maxLimit),
		tiesHandler:     NewTiesHandler(deps, maxLimit),
		projectHandler:  NewProjectHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/outcomes", MetricsMiddleware(s.outcomesHandler.HandleGetOutcomes, "outcomes"))
	mux.HandleFunc("/outcomes/options", MetricsMiddleware(s.outcomesHandler.HandleGetOptions, "outcomes_options"))
	mux.HandleFunc("/outcomes/points", MetricsMiddleware(s.outcomesHandler.HandleGetPoints, "outcomes_points"))
	mux.HandleFunc("/ties", MetricsMiddleware(s.tiesHandler.HandleGetTies, "ties"))
	mux.HandleFunc("/ties/summary", MetricsMiddleware(s.tiesHandler.HandleGetSummary, "ties_summary"))
	mux.HandleFunc("/project", MetricsMiddleware(s.projectHandler.HandlePostProject, "project"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream errors to a status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotPopulated):
		writeError(w, http.StatusServiceUnavailable, "not_populated", err)
	case errors.Is(err, ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case isBadInput(err):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNoStore), errors.Is(err, repository.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func isBadInput(err error) bool {
	for _, kind := range []error{
		ErrBadRequest,
		repository.ErrInvalidFilter,
		service.ErrUnknownEvent,
		champion.ErrNoResults,
		delta.ErrSharedPosition,
		delta.ErrCountMismatch,
		scoring.ErrInvalidPosition,
		types.ErrUnknownDriver,
		types.ErrUnknownCriterion,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// requireMethod answers 405 and returns false when r does not use method.
func requireMethod(w http.ResponseWriter, r *http.Request, op, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	return false
}
