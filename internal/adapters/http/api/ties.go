package api

import (
	"context"
	"net/http"

	"github.com/okian/champsim/internal/adapters/repository"
	"github.com/okian/champsim/internal/domain/ties"
)

// TieDependencies defines the interface for tie scenario queries.
type TieDependencies interface {
	Ties(ctx context.Context, f repository.TieFilter) ([]ties.Record, error)
	TieSummary(ctx context.Context) (ties.Summary, error)
}

// TiesHandler handles tie scenario requests.
type TiesHandler struct {
	deps     TieDependencies
	maxLimit int
}

// NewTiesHandler creates a new ties handler.
func NewTiesHandler(deps TieDependencies, maxLimit int) *TiesHandler {
	return &TiesHandler{deps: deps, maxLimit: maxLimit}
}

type tiesResponse struct {
	Count int           `json:"count"`
	Ties  []ties.Record `json:"ties"`
}

// HandleGetTies handles GET /ties?kind=&tied=&limit= requests.
// tied takes a label such as "norris & piastri".
func (h *TiesHandler) HandleGetTies(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ties"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, err := parseLimit(q, h.maxLimit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	f := repository.TieFilter{
		Kind:  ties.Kind(q.Get("kind")),
		Tied:  q.Get("tied"),
		Limit: limit,
	}
	records, err := h.deps.Ties(r.Context(), f)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if records == nil {
		records = []ties.Record{}
	}
	writeJSON(w, http.StatusOK, tiesResponse{Count: len(records), Ties: records})
}

// HandleGetSummary handles GET /ties/summary requests.
func (h *TiesHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tie_summary"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	sum, err := h.deps.TieSummary(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
