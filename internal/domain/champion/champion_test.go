package champion_test

import (
	"errors"
	"testing"

	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func standings(pts, wins, seconds, thirds [3]int) types.Standings {
	var s types.Standings
	for i := range s {
		s[i] = types.Stats{Points: pts[i], Wins: wins[i], Seconds: seconds[i], Thirds: thirds[i]}
	}
	return s
}

func TestResolve(t *testing.T) {
	Convey("Given final standings", t, func() {
		Convey("When one driver leads on points", func() {
			s := standings([3]int{380, 410, 400}, [3]int{9, 1, 1}, [3]int{}, [3]int{})
			champ, crit := champion.Resolve(s)

			Convey("Then points should decide", func() {
				So(champ, ShouldEqual, types.Piastri)
				So(crit, ShouldEqual, types.ByPoints)
			})
		})

		Convey("When points are tied at the top and wins differ", func() {
			s := standings([3]int{400, 400, 380}, [3]int{8, 7, 6}, [3]int{}, [3]int{})
			champ, crit := champion.Resolve(s)

			Convey("Then wins should decide for the driver with more wins", func() {
				So(champ, ShouldEqual, types.Norris)
				So(crit, ShouldEqual, types.ByWins)
			})
		})

		Convey("When points and wins are tied and seconds differ", func() {
			s := standings([3]int{400, 380, 400}, [3]int{7, 7, 7}, [3]int{4, 9, 5}, [3]int{9, 0, 0})
			champ, crit := champion.Resolve(s)

			Convey("Then second places should decide", func() {
				So(champ, ShouldEqual, types.Verstappen)
				So(crit, ShouldEqual, types.BySeconds)
			})
		})

		Convey("When only third places separate the leaders", func() {
			s := standings([3]int{400, 400, 400}, [3]int{7, 7, 7}, [3]int{4, 4, 4}, [3]int{2, 3, 1})
			champ, crit := champion.Resolve(s)

			Convey("Then third places should decide", func() {
				So(champ, ShouldEqual, types.Piastri)
				So(crit, ShouldEqual, types.ByThirds)
			})
		})

		Convey("When all three are identical on every attribute", func() {
			s := standings([3]int{400, 400, 400}, [3]int{7, 7, 7}, [3]int{4, 4, 4}, [3]int{3, 3, 3})
			champ, crit := champion.Resolve(s)

			Convey("Then the first declared driver should be picked as fully tied", func() {
				So(champ, ShouldEqual, types.Norris)
				So(crit, ShouldEqual, types.FullyTied)
			})
		})

		Convey("When the two fully tied leaders are declared later", func() {
			s := standings([3]int{300, 400, 400}, [3]int{7, 7, 7}, [3]int{4, 4, 4}, [3]int{3, 3, 3})
			champ, crit := champion.Resolve(s)

			Convey("Then declaration order should still decide between them", func() {
				So(champ, ShouldEqual, types.Piastri)
				So(crit, ShouldEqual, types.FullyTied)
			})
		})

		Convey("When the leader is clear but second and third are tied", func() {
			s := standings([3]int{420, 400, 400}, [3]int{1, 7, 7}, [3]int{4, 4, 4}, [3]int{3, 3, 3})
			champ, crit := champion.Resolve(s)

			Convey("Then only the margin to the runner-up should matter", func() {
				So(champ, ShouldEqual, types.Norris)
				So(crit, ShouldEqual, types.ByPoints)
			})
		})

		Convey("When resolving the same standings twice", func() {
			s := standings([3]int{396, 396, 396}, [3]int{7, 8, 8}, [3]int{6, 4, 5}, [3]int{4, 3, 3})
			c1, k1 := champion.Resolve(s)
			c2, k2 := champion.Resolve(s)

			Convey("Then the answer should be identical", func() {
				So(c1, ShouldEqual, c2)
				So(k1, ShouldEqual, k2)
				So(c1, ShouldEqual, types.Verstappen)
				So(k1, ShouldEqual, types.BySeconds)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given standings with a clear order", t, func() {
		s := standings([3]int{366, 390, 366}, [3]int{7, 7, 6}, [3]int{}, [3]int{})
		order := champion.Rank(s)

		Convey("Then drivers should be ordered by the full tie-break key", func() {
			So(order, ShouldResemble, [3]types.Driver{types.Piastri, types.Norris, types.Verstappen})
		})
	})
}

func TestProject(t *testing.T) {
	Convey("Given standings before the final race", t, func() {
		base := standings([3]int{396, 392, 396}, [3]int{7, 7, 7}, [3]int{6, 4, 5}, [3]int{4, 3, 3})
		race := scoring.Event{Name: "abu_dhabi_race", Table: scoring.MustTable(scoring.Race, scoring.RacePoints)}

		Convey("When Piastri wins ahead of Verstappen and Norris", func() {
			p, err := champion.Project(base, []champion.EventResult{
				{Event: race, Positions: delta.Assignment{3, 1, 2}},
			})
			So(err, ShouldBeNil)

			Convey("Then Piastri should take the title on points", func() {
				So(p.Final[types.Norris].Points, ShouldEqual, 411)
				So(p.Final[types.Piastri].Points, ShouldEqual, 417)
				So(p.Final[types.Verstappen].Points, ShouldEqual, 414)
				So(p.Champion, ShouldEqual, types.Piastri)
				So(p.Criterion, ShouldEqual, types.ByPoints)
				So(p.Order, ShouldResemble, [3]types.Driver{types.Piastri, types.Verstappen, types.Norris})
				So(p.Gains[types.Piastri].Wins, ShouldEqual, 1)
			})
		})

		Convey("When two drivers are given the same scoring position", func() {
			_, err := champion.Project(base, []champion.EventResult{
				{Event: race, Positions: delta.Assignment{1, 1, scoring.Sentinel}},
			})

			Convey("Then the projection should be rejected", func() {
				So(errors.Is(err, delta.ErrSharedPosition), ShouldBeTrue)
			})
		})

		Convey("When a position is outside the table", func() {
			_, err := champion.Project(base, []champion.EventResult{
				{Event: race, Positions: delta.Assignment{11, 2, 3}},
			})

			Convey("Then the projection should fail fast", func() {
				So(errors.Is(err, scoring.ErrInvalidPosition), ShouldBeTrue)
			})
		})

		Convey("When no results are given", func() {
			_, err := champion.Project(base, nil)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, champion.ErrNoResults), ShouldBeTrue)
			})
		})
	})
}
