package champion

import (
	"errors"
	"fmt"

	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
)

// ErrNoResults is returned when a projection is requested without any event results.
var ErrNoResults = errors.New("no event results to project")

// EventResult is a chosen set of finishing positions for one event.
type EventResult struct {
	Event     scoring.Event
	Positions delta.Assignment
}

// Projection is the final ranking implied by a fixed set of results.
type Projection struct {
	Gains     delta.Trio                      `json:"gains"`
	Final     types.Standings                 `json:"final"`
	Order     [types.DriverCount]types.Driver `json:"order"`
	Champion  types.Driver                    `json:"champion"`
	Criterion types.Criterion                 `json:"criterion"`
}

// Project applies results on top of base and resolves the title.
func Project(base types.Standings, results []EventResult) (Projection, error) {
	if len(results) == 0 {
		return Projection{}, ErrNoResults
	}
	var gains delta.Trio
	for _, r := range results {
		trio, err := delta.FromAssignment(r.Event.Table, r.Positions)
		if err != nil {
			return Projection{}, fmt.Errorf("event %s: %w", r.Event.Name, err)
		}
		gains = gains.Add(trio)
	}
	final := gains.Apply(base)
	order := Rank(final)
	return Projection{
		Gains:     gains,
		Final:     final,
		Order:     order,
		Champion:  order[0],
		Criterion: Decider(final[order[0]], final[order[1]]),
	}, nil
}
