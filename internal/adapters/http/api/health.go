// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/champsim/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthDependencies reports whether the outcome table is ready to serve.
type HealthDependencies interface {
	Populated(ctx context.Context) (bool, error)
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	deps    HealthDependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Populated bool   `json:"populated"`
}

// HandleHealth handles GET /healthz requests.
// The process is healthy once the store answers; an empty outcome table is
// reported but does not fail the check.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	const op = "api.health"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	ok, err := h.deps.Populated(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Populated: ok})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
