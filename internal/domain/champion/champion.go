// Package champion applies the championship tie-break to final standings.
//
// Drivers are ordered by points, then wins, then second places, then third
// places, all descending. When two drivers match on all four, the one
// declared first in types.Drivers ranks ahead.
package champion

import (
	"github.com/okian/champsim/internal/domain/types"
)

// ahead reports whether a ranks strictly ahead of b on the tie-break key.
func ahead(a, b types.Stats) bool {
	switch {
	case a.Points != b.Points:
		return a.Points > b.Points
	case a.Wins != b.Wins:
		return a.Wins > b.Wins
	case a.Seconds != b.Seconds:
		return a.Seconds > b.Seconds
	default:
		return a.Thirds > b.Thirds
	}
}

// Decider returns the first attribute, in priority order, on which a and b differ.
func Decider(a, b types.Stats) types.Criterion {
	switch {
	case a.Points != b.Points:
		return types.ByPoints
	case a.Wins != b.Wins:
		return types.ByWins
	case a.Seconds != b.Seconds:
		return types.BySeconds
	case a.Thirds != b.Thirds:
		return types.ByThirds
	default:
		return types.FullyTied
	}
}

// Rank returns all drivers ordered from champion to last.
func Rank(final types.Standings) [types.DriverCount]types.Driver {
	order := types.Drivers()
	// stable insertion sort over three entries
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && ahead(final[order[j]], final[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// Resolve returns the champion and the criterion separating them from the
// runner-up. Only the top two are compared.
func Resolve(final types.Standings) (types.Driver, types.Criterion) {
	order := Rank(final)
	return order[0], Decider(final[order[0]], final[order[1]])
}
