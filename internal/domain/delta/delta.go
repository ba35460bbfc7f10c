// Package delta turns finishing positions into per-driver stat deltas.
//
// A Trio is a comparable value (twelve ints) and is used directly as a map
// key, so identical deltas from different position assignments collapse into
// one Distribution entry with a multiplicity.
package delta

import (
	"errors"
	"fmt"
	"iter"

	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
)

// Sentinel kinds for delta generation errors.
var (
	ErrSharedPosition = errors.New("scoring position shared by more than one driver")
	ErrCountMismatch  = errors.New("assignment count mismatch")
)

// Delta is the change in one driver's stats over one event or a run of events.
type Delta struct {
	Points  int `json:"points"`
	Wins    int `json:"wins"`
	Seconds int `json:"seconds"`
	Thirds  int `json:"thirds"`
}

// Add returns the component-wise sum of d and o.
func (d Delta) Add(o Delta) Delta {
	return Delta{
		Points:  d.Points + o.Points,
		Wins:    d.Wins + o.Wins,
		Seconds: d.Seconds + o.Seconds,
		Thirds:  d.Thirds + o.Thirds,
	}
}

// Apply adds d on top of a season record and returns the result.
func (d Delta) Apply(s types.Stats) types.Stats {
	return types.Stats{
		Points:  s.Points + d.Points,
		Wins:    s.Wins + d.Wins,
		Seconds: s.Seconds + d.Seconds,
		Thirds:  s.Thirds + d.Thirds,
	}
}

// Trio holds one Delta per driver, indexed by types.Driver.
type Trio [types.DriverCount]Delta

// Add returns the per-driver sum of t and o.
func (t Trio) Add(o Trio) Trio {
	var out Trio
	for i := range t {
		out[i] = t[i].Add(o[i])
	}
	return out
}

// Apply returns base with t added; base itself is not modified.
func (t Trio) Apply(base types.Standings) types.Standings {
	var out types.Standings
	for i := range t {
		out[i] = t[i].Apply(base[i])
	}
	return out
}

// Assignment is one finishing position per driver for a single event.
type Assignment [types.DriverCount]int

// AssignmentOf builds an assignment from driver ids to positions. Drivers
// left out did not score.
func AssignmentOf(positions map[string]int) (Assignment, error) {
	a := Assignment{scoring.Sentinel, scoring.Sentinel, scoring.Sentinel}
	for id, pos := range positions {
		d, err := types.ParseDriver(id)
		if err != nil {
			return Assignment{}, err
		}
		a[d] = pos
	}
	return a, nil
}

// ValidAssignment reports whether no two drivers share a scoring position.
// Any number of drivers may share the sentinel.
func ValidAssignment(a Assignment) bool {
	for i := 0; i < len(a); i++ {
		if a[i] == scoring.Sentinel {
			continue
		}
		for j := i + 1; j < len(a); j++ {
			if a[i] == a[j] {
				return false
			}
		}
	}
	return true
}

// Validate checks a against t: every position must be a scoring position or
// the sentinel, and scoring positions must not be shared.
func Validate(t scoring.Table, a Assignment) error {
	for i, pos := range a {
		if !t.Valid(pos) {
			return fmt.Errorf("%w: %s position %d for %s", scoring.ErrInvalidPosition, t.Kind, pos, types.Driver(i))
		}
	}
	if !ValidAssignment(a) {
		return fmt.Errorf("%w: %v", ErrSharedPosition, a)
	}
	return nil
}

// Assignments yields every valid assignment for one event of table t, one at
// a time, without materialising the cross product.
func Assignments(t scoring.Table) iter.Seq[Assignment] {
	candidates := t.Candidates()
	return func(yield func(Assignment) bool) {
		for _, p0 := range candidates {
			for _, p1 := range candidates {
				if p1 != scoring.Sentinel && p1 == p0 {
					continue
				}
				for _, p2 := range candidates {
					a := Assignment{p0, p1, p2}
					if !ValidAssignment(a) {
						continue
					}
					if !yield(a) {
						return
					}
				}
			}
		}
	}
}

// ExpectedCount is the number of valid assignments for three drivers over k
// scoring positions plus the sentinel.
func ExpectedCount(k int) uint64 {
	n := uint64(k)
	if k <= 0 {
		return 1
	}
	// none scoring + one scoring + two scoring + three scoring
	total := 1 + 3*n + 3*n*(n-1)
	if k >= 3 {
		total += n * (n - 1) * (n - 2)
	}
	return total
}

// FromPosition converts one finishing position into a Delta.
func FromPosition(t scoring.Table, pos int) (Delta, error) {
	pts, err := t.PointsFor(pos)
	if err != nil {
		return Delta{}, err
	}
	d := Delta{Points: pts}
	switch pos {
	case 1:
		d.Wins = 1
	case 2:
		d.Seconds = 1
	case 3:
		d.Thirds = 1
	}
	return d, nil
}

// FromAssignment converts a validated assignment into a Trio.
func FromAssignment(t scoring.Table, a Assignment) (Trio, error) {
	if err := Validate(t, a); err != nil {
		return Trio{}, err
	}
	var out Trio
	for i, pos := range a {
		d, err := FromPosition(t, pos)
		if err != nil {
			return Trio{}, err
		}
		out[i] = d
	}
	return out, nil
}

// Distribution maps each distinct Trio to the number of raw assignments
// producing it.
type Distribution map[Trio]uint64

// Generate enumerates every valid assignment of t and counts the resulting
// Trios. The total is checked against ExpectedCount.
func Generate(t scoring.Table) (Distribution, error) {
	dist := make(Distribution)
	var seen uint64
	for a := range Assignments(t) {
		trio, err := FromAssignment(t, a)
		if err != nil {
			return nil, err
		}
		dist[trio]++
		seen++
	}
	if want := ExpectedCount(t.ScoringPositions()); seen != want {
		return nil, fmt.Errorf("%w: %s generated %d assignments, want %d", ErrCountMismatch, t.Kind, seen, want)
	}
	return dist, nil
}
