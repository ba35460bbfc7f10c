package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/delta"
)

// maxProjectBody bounds the size of a POST /project body.
const maxProjectBody = 64 << 10

// ProjectDependencies defines the interface for what-if projections.
type ProjectDependencies interface {
	Project(ctx context.Context, positions map[string]delta.Assignment) (champion.Projection, error)
}

// ProjectHandler handles projection requests.
type ProjectHandler struct {
	deps ProjectDependencies
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(deps ProjectDependencies) *ProjectHandler {
	return &ProjectHandler{deps: deps}
}

// projectRequest maps event name to driver id to finishing position.
// Drivers left out of an event did not score in it.
type projectRequest struct {
	Events map[string]map[string]int `json:"events"`
}

func (p projectRequest) assignments() (map[string]delta.Assignment, error) {
	if len(p.Events) == 0 {
		return nil, errors.New("missing events")
	}
	out := make(map[string]delta.Assignment, len(p.Events))
	for name, positions := range p.Events {
		a, err := delta.AssignmentOf(positions)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", name, err)
		}
		out[name] = a
	}
	return out, nil
}

type projectResponse struct {
	champion.Projection
	ChampionName string `json:"champion_name"`
}

// HandlePostProject handles POST /project requests.
func (h *ProjectHandler) HandlePostProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_project"
	if !requireMethod(w, r, op, http.MethodPost) {
		return
	}
	var req projectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProjectBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	positions, err := req.assignments()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.Project(r.Context(), positions)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{Projection: p, ChampionName: p.Champion.DisplayName()})
}
