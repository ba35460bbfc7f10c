// Package ties enumerates two-event results that leave the title contenders
// level on points at the top of the standings.
package ties

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
)

// Kind distinguishes two-way from three-way ties.
type Kind string

// Tie kinds.
const (
	Double Kind = "double"
	Triple Kind = "triple"
)

// Record is one position combination over both events ending in a tie at the top.
type Record struct {
	First     delta.Assignment       `json:"first"`
	Second    delta.Assignment       `json:"second"`
	Points    [types.DriverCount]int `json:"points"`
	Gains     [types.DriverCount]int `json:"gains"`
	TiePoints int                    `json:"tie_points"`
	Kind      Kind                   `json:"kind"`
	Tied      []types.Driver         `json:"tied"`
	Leader    types.Driver           `json:"leader"`
	Criterion types.Criterion        `json:"criterion"`
}

// TiedLabel joins the tied driver ids, e.g. "norris & piastri".
func (r Record) TiedLabel() string {
	return Label(r.Tied)
}

// Label joins driver ids with " & " in declaration order.
func Label(drivers []types.Driver) string {
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.String()
	}
	return strings.Join(ids, " & ")
}

// ParseLabel splits a label produced by Label back into drivers.
func ParseLabel(label string) ([]types.Driver, error) {
	parts := strings.Split(label, " & ")
	out := make([]types.Driver, 0, len(parts))
	for _, p := range parts {
		d, err := types.ParseDriver(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ErrUnknownKind is returned by ParseKind for anything but double or triple.
var ErrUnknownKind = errors.New("unknown tie kind")

// ParseKind maps a stored kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Double, Triple:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

type scored struct {
	a delta.Assignment
	t delta.Trio
}

// Generate walks every valid pair of assignments for first and second and
// keeps those where at least two drivers share the highest points total.
// Leader and Criterion come from the regular tie-break on the full stats.
func Generate(base types.Standings, first, second scoring.Event) ([]Record, error) {
	secondTrios := make([]scored, 0, delta.ExpectedCount(second.Table.ScoringPositions()))
	for a := range delta.Assignments(second.Table) {
		t, err := delta.FromAssignment(second.Table, a)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", second.Name, err)
		}
		secondTrios = append(secondTrios, scored{a: a, t: t})
	}

	var out []Record
	for a1 := range delta.Assignments(first.Table) {
		t1, err := delta.FromAssignment(first.Table, a1)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", first.Name, err)
		}
		for _, s := range secondTrios {
			gains := t1.Add(s.t)
			final := gains.Apply(base)
			tied, top := leaders(final)
			if len(tied) < 2 {
				continue
			}
			leader, crit := champion.Resolve(final)
			r := Record{
				First:     a1,
				Second:    s.a,
				TiePoints: top,
				Kind:      Double,
				Tied:      tied,
				Leader:    leader,
				Criterion: crit,
			}
			if len(tied) == types.DriverCount {
				r.Kind = Triple
			}
			for i := range final {
				r.Points[i] = final[i].Points
				r.Gains[i] = gains[i].Points
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// leaders returns the drivers sharing the highest points total and that total.
func leaders(final types.Standings) ([]types.Driver, int) {
	top := final[0].Points
	for _, s := range final[1:] {
		if s.Points > top {
			top = s.Points
		}
	}
	var tied []types.Driver
	for _, d := range types.Drivers() {
		if final[d].Points == top {
			tied = append(tied, d)
		}
	}
	return tied, top
}

// Summary condenses a set of tie records for reporting.
type Summary struct {
	Total     int            `json:"total"`
	Doubles   int            `json:"doubles"`
	Triples   int            `json:"triples"`
	ByPair    map[string]int `json:"by_pair"`
	MinPoints int            `json:"min_points"`
	MaxPoints int            `json:"max_points"`
}

// Summarize counts records per kind and per tied pair and tracks the range of tie points.
func Summarize(records []Record) Summary {
	s := Summary{ByPair: make(map[string]int)}
	for i, r := range records {
		s.Total++
		switch r.Kind {
		case Triple:
			s.Triples++
		default:
			s.Doubles++
			s.ByPair[r.TiedLabel()]++
		}
		if i == 0 || r.TiePoints < s.MinPoints {
			s.MinPoints = r.TiePoints
		}
		if i == 0 || r.TiePoints > s.MaxPoints {
			s.MaxPoints = r.TiePoints
		}
	}
	return s
}
