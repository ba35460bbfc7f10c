package api

import (
	"context"
	"net/http"

	"github.com/okian/champsim/internal/adapters/repository"
)

// SummaryDependencies defines the interface for outcome aggregates.
type SummaryDependencies interface {
	Summary(ctx context.Context) (repository.Summary, error)
}

// SummaryHandler handles summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /summary requests.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
