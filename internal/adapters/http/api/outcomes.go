package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/champsim/internal/adapters/repository"
	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/types"
)

// OutcomeDependencies defines the interface for outcome queries.
type OutcomeDependencies interface {
	Outcomes(ctx context.Context, f repository.Filter) ([]outcome.Record, error)
	FilterOptions(ctx context.Context) (repository.FilterOptions, error)
	PointsDistribution(ctx context.Context) ([]repository.PointsShare, error)
}

// OutcomesHandler handles outcome listing requests.
type OutcomesHandler struct {
	deps     OutcomeDependencies
	maxLimit int
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps OutcomeDependencies, maxLimit int) *OutcomesHandler {
	return &OutcomesHandler{deps: deps, maxLimit: maxLimit}
}

type outcomesResponse struct {
	Count    int              `json:"count"`
	Outcomes []outcome.Record `json:"outcomes"`
}

// HandleGetOutcomes handles GET /outcomes requests.
// Query parameters: champion, criterion, points_min, points_max, limit.
func (h *OutcomesHandler) HandleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcomes"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	f, err := h.parseFilter(r.URL.Query())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	records, err := h.deps.Outcomes(r.Context(), f)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if records == nil {
		records = []outcome.Record{}
	}
	writeJSON(w, http.StatusOK, outcomesResponse{Count: len(records), Outcomes: records})
}

// HandleGetOptions handles GET /outcomes/options requests.
func (h *OutcomesHandler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcome_options"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	opts, err := h.deps.FilterOptions(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

type pointsResponse struct {
	Count  int                      `json:"count"`
	Points []repository.PointsShare `json:"points"`
}

// HandleGetPoints handles GET /outcomes/points requests: each driver's final
// points weighted by multiplicity.
func (h *OutcomesHandler) HandleGetPoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcome_points"
	if !requireMethod(w, r, op, http.MethodGet) {
		return
	}
	points, err := h.deps.PointsDistribution(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if points == nil {
		points = []repository.PointsShare{}
	}
	writeJSON(w, http.StatusOK, pointsResponse{Count: len(points), Points: points})
}

func (h *OutcomesHandler) parseFilter(q url.Values) (repository.Filter, error) {
	var f repository.Filter
	if v := q.Get("champion"); v != "" {
		d, err := types.ParseDriver(v)
		if err != nil {
			return f, err
		}
		f.Champion = &d
	}
	if v := q.Get("criterion"); v != "" {
		c, err := types.ParseCriterion(v)
		if err != nil {
			return f, err
		}
		f.Criterion = &c
	}
	var err error
	if f.PointsMin, err = optionalInt(q, "points_min"); err != nil {
		return f, err
	}
	if f.PointsMax, err = optionalInt(q, "points_max"); err != nil {
		return f, err
	}
	f.Limit, err = parseLimit(q, h.maxLimit)
	return f, err
}

func optionalInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
	}
	return &n, nil
}

// parseLimit reads the limit parameter. Absent means maxLimit.
func parseLimit(q url.Values, maxLimit int) (int, error) {
	v := q.Get("limit")
	if v == "" {
		return maxLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if maxLimit > 0 && n > maxLimit {
		return 0, fmt.Errorf("%w: limit %d above %d", ErrLimitExceeded, n, maxLimit)
	}
	return n, nil
}
