// Package outcome flattens aggregated states into persistable records.
package outcome

import (
	"cmp"
	"slices"

	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/types"
)

// Record is one aggregated state resolved to a champion.
type Record struct {
	DeltaPoints  [types.DriverCount]int `json:"delta_points"`
	DeltaWins    [types.DriverCount]int `json:"delta_wins"`
	DeltaSeconds [types.DriverCount]int `json:"delta_seconds"`
	DeltaThirds  [types.DriverCount]int `json:"delta_thirds"`
	FinalPoints  [types.DriverCount]int `json:"final_points"`
	FinalWins    [types.DriverCount]int `json:"final_wins"`
	Champion     types.Driver           `json:"champion"`
	Criterion    types.Criterion        `json:"criterion"`
	Multiplicity uint64                 `json:"multiplicity"`
}

// ChampionPoints returns the champion's final points.
func (r Record) ChampionPoints() int { return r.FinalPoints[r.Champion] }

// Resolve builds the record for a single state.
func Resolve(base types.Standings, key delta.Trio, multiplicity uint64) Record {
	final := key.Apply(base)
	champ, crit := champion.Resolve(final)
	r := Record{
		Champion:     champ,
		Criterion:    crit,
		Multiplicity: multiplicity,
	}
	for i := range key {
		r.DeltaPoints[i] = key[i].Points
		r.DeltaWins[i] = key[i].Wins
		r.DeltaSeconds[i] = key[i].Seconds
		r.DeltaThirds[i] = key[i].Thirds
		r.FinalPoints[i] = final[i].Points
		r.FinalWins[i] = final[i].Wins
	}
	return r
}

// Materialize resolves every state of parts against base. The parts must be
// disjoint shards of one distribution. Records are ordered by multiplicity
// descending, then by their deltas, so output is reproducible.
func Materialize(base types.Standings, parts ...delta.Distribution) []Record {
	n := 0
	for _, dist := range parts {
		n += len(dist)
	}
	out := make([]Record, 0, n)
	for _, dist := range parts {
		for key, m := range dist {
			out = append(out, Resolve(base, key, m))
		}
	}
	slices.SortFunc(out, compare)
	return out
}

func compare(a, b Record) int {
	if c := cmp.Compare(b.Multiplicity, a.Multiplicity); c != 0 {
		return c
	}
	for _, pair := range [][2][types.DriverCount]int{
		{a.DeltaPoints, b.DeltaPoints},
		{a.DeltaWins, b.DeltaWins},
		{a.DeltaSeconds, b.DeltaSeconds},
		{a.DeltaThirds, b.DeltaThirds},
	} {
		if c := slices.Compare(pair[0][:], pair[1][:]); c != 0 {
			return c
		}
	}
	return 0
}

// Tally aggregates records the way the read side groups them.
type Tally struct {
	States       int
	Combinations uint64
	ByChampion   map[types.Driver]uint64
	ByCriterion  map[types.Criterion]uint64
}

// Count sums multiplicities per champion and per criterion.
func Count(records []Record) Tally {
	t := Tally{
		ByChampion:  make(map[types.Driver]uint64),
		ByCriterion: make(map[types.Criterion]uint64),
	}
	for _, r := range records {
		t.States++
		t.Combinations += r.Multiplicity
		t.ByChampion[r.Champion] += r.Multiplicity
		t.ByCriterion[r.Criterion] += r.Multiplicity
	}
	return t
}
