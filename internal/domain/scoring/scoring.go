// Package scoring defines the point tables awarded per finishing position.
package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel is the position code for "did not score". Several drivers may share it.
const Sentinel = 99

// Kind identifies the session type of an event.
type Kind string

// Event kinds.
const (
	Sprint Kind = "sprint"
	Race   Kind = "race"
)

// Sentinel kinds for scoring errors.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidTable    = errors.New("invalid scoring table")
	ErrUnknownKind     = errors.New("unknown event kind")
)

// Default point tables.
var (
	SprintPoints = []int{8, 7, 6, 5, 4, 3, 2, 1}
	RacePoints   = []int{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}
)

// Table maps finishing positions to points for one kind of event.
// Points[i] is awarded for position i+1; positions past the end do not score.
type Table struct {
	Kind   Kind
	points []int
}

// NewTable builds a table, copying points so callers cannot mutate it later.
func NewTable(kind Kind, points []int) (Table, error) {
	if len(points) == 0 {
		return Table{}, fmt.Errorf("%w: %s has no scoring positions", ErrInvalidTable, kind)
	}
	if len(points) >= Sentinel {
		return Table{}, fmt.Errorf("%w: %s has %d positions, sentinel is %d", ErrInvalidTable, kind, len(points), Sentinel)
	}
	for i, p := range points {
		if p < 0 {
			return Table{}, fmt.Errorf("%w: %s position %d awards %d points", ErrInvalidTable, kind, i+1, p)
		}
	}
	cp := make([]int, len(points))
	copy(cp, points)
	return Table{Kind: kind, points: cp}, nil
}

// MustTable is NewTable for package-level defaults; it panics on error.
func MustTable(kind Kind, points []int) Table {
	t, err := NewTable(kind, points)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable returns the standard table for kind.
func DefaultTable(kind Kind) (Table, error) {
	switch kind {
	case Sprint:
		return NewTable(Sprint, SprintPoints)
	case Race:
		return NewTable(Race, RacePoints)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Sprint:
		return Sprint, nil
	case Race:
		return Race, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ScoringPositions returns how many positions award points.
func (t Table) ScoringPositions() int { return len(t.points) }

// Positions returns the scoring positions 1..n in order.
func (t Table) Positions() []int {
	out := make([]int, len(t.points))
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Candidates returns the scoring positions followed by the sentinel.
func (t Table) Candidates() []int {
	return append(t.Positions(), Sentinel)
}

// IsScoring reports whether pos is a scoring position of t.
func (t Table) IsScoring(pos int) bool {
	return pos >= 1 && pos <= len(t.points)
}

// Valid reports whether pos is a scoring position or the sentinel.
func (t Table) Valid(pos int) bool {
	return pos == Sentinel || t.IsScoring(pos)
}

// PointsFor returns the points awarded for pos. Positions outside the table
// (other than the sentinel) are rejected rather than clamped.
func (t Table) PointsFor(pos int) (int, error) {
	if pos == Sentinel {
		return 0, nil
	}
	if !t.IsScoring(pos) {
		return 0, fmt.Errorf("%w: %d is not a %s scoring position", ErrInvalidPosition, pos, t.Kind)
	}
	return t.points[pos-1], nil
}

// Max returns the highest award in the table.
func (t Table) Max() int {
	m := 0
	for _, p := range t.points {
		if p > m {
			m = p
		}
	}
	return m
}

// Event is one remaining scored session.
type Event struct {
	Name  string
	Table Table
}
