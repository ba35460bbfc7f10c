package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/champsim/internal/adapters/repository"
	service "github.com/okian/champsim/internal/app"
	"github.com/okian/champsim/internal/config"
	"github.com/okian/champsim/internal/domain/convolution"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
	"github.com/okian/champsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// countingStore records how often the tables are rebuilt.
type countingStore struct {
	repository.Store
	outcomeWrites int
	tieWrites     int
}

func (c *countingStore) ReplaceOutcomes(ctx context.Context, records []outcome.Record) error {
	c.outcomeWrites++
	return c.Store.ReplaceOutcomes(ctx, records)
}

func (c *countingStore) ReplaceTies(ctx context.Context, records []ties.Record) error {
	c.tieWrites++
	return c.Store.ReplaceTies(ctx, records)
}

var smallBase = types.Standings{
	types.Norris:     {Points: 10},
	types.Piastri:    {Points: 10},
	types.Verstappen: {Points: 9},
}

func openStore(t *testing.T) *countingStore {
	s, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &countingStore{Store: s}
}

func sprint(points ...int) scoring.Event {
	return scoring.Event{Name: "sprint", Table: scoring.MustTable(scoring.Sprint, points)}
}

func race(name string, points ...int) scoring.Event {
	return scoring.Event{Name: name, Table: scoring.MustTable(scoring.Race, points)}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service without collaborators", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then runs should fail fast", func() {
			_, err := svc.Run(ctx, false)
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
			_, err = svc.RunTies(ctx, false)
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
			_, err = svc.Populated(ctx)
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
		})
	})

	Convey("Given a service with a store but no events", t, func() {
		svc := service.New(service.WithStore(openStore(t)))

		Convey("Then runs should report the missing events", func() {
			_, err := svc.Run(context.Background(), false)
			So(errors.Is(err, service.ErrNoEvents), ShouldBeTrue)
			_, err = svc.RunTies(context.Background(), false)
			So(errors.Is(err, service.ErrNoTieEvents), ShouldBeTrue)
		})
	})
}

func TestService_Run_SingleEvent(t *testing.T) {
	Convey("Given one event scoring {1:3, 2:1} and standings (10, 10, 9)", t, func() {
		store := openStore(t)
		svc := service.New(
			service.WithStore(store),
			service.WithStandings(smallBase),
			service.WithEvents(sprint(3, 1)),
			service.WithFoldPartitions(2),
		)
		ctx := context.Background()

		Convey("When running for the first time", func() {
			res, err := svc.Run(ctx, false)

			Convey("Then 13 states and 13 combinations should be stored", func() {
				So(err, ShouldBeNil)
				So(res.Computed, ShouldBeTrue)
				So(res.Run.States, ShouldEqual, 13)
				So(res.Run.Combinations, ShouldEqual, 13)
				So(res.Run.ID, ShouldNotBeEmpty)
				So(res.Summary.States, ShouldEqual, 13)
				So(res.Summary.Combinations, ShouldEqual, 13)
				So(store.outcomeWrites, ShouldEqual, 1)
			})

			Convey("And the table should be populated", func() {
				ok, err := svc.Populated(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				state, err := svc.State(ctx, repository.TableOutcomes)
				So(err, ShouldBeNil)
				So(state, ShouldEqual, service.Populated)
				So(state.String(), ShouldEqual, "populated")
			})

			Convey("And nobody scoring should be a full tie won by Norris", func() {
				crit := types.FullyTied
				recs, err := svc.Outcomes(ctx, repository.Filter{Criterion: &crit})
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].FinalPoints, ShouldResemble, [3]int{10, 10, 9})
				So(recs[0].Champion, ShouldEqual, types.Norris)
			})
		})

		Convey("When running twice without force", func() {
			first, err := svc.Run(ctx, false)
			So(err, ShouldBeNil)
			second, err := svc.Run(ctx, false)
			So(err, ShouldBeNil)

			Convey("Then the second run should not recompute", func() {
				So(second.Computed, ShouldBeFalse)
				So(store.outcomeWrites, ShouldEqual, 1)
				So(second.Summary, ShouldResemble, first.Summary)
				So(second.Run.ID, ShouldEqual, first.Run.ID)
			})
		})

		Convey("When forcing a second run", func() {
			first, err := svc.Run(ctx, false)
			So(err, ShouldBeNil)
			second, err := svc.Run(ctx, true)
			So(err, ShouldBeNil)

			Convey("Then the table should be rebuilt with identical content", func() {
				So(second.Computed, ShouldBeTrue)
				So(store.outcomeWrites, ShouldEqual, 2)
				So(second.Run.ID, ShouldNotEqual, first.Run.ID)
				So(second.Summary, ShouldResemble, first.Summary)
			})

			Convey("And stats should report the latest run", func() {
				stats := svc.GetStats()
				run, ok := stats[repository.TableOutcomes].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(run["runId"], ShouldEqual, second.Run.ID)
				So(stats["partitions"], ShouldEqual, 2)
			})
		})
	})
}

func TestService_Run_MultipleEvents(t *testing.T) {
	Convey("Given a sprint and two races with short tables", t, func() {
		store := openStore(t)
		events := []scoring.Event{sprint(3, 1), race("race 1", 5, 3, 1), race("race 2", 5, 3, 1)}
		svc := service.New(
			service.WithStore(store),
			service.WithStandings(smallBase),
			service.WithEvents(events...),
			service.WithFoldPartitions(3),
		)

		Convey("When running", func() {
			res, err := svc.Run(context.Background(), false)
			So(err, ShouldBeNil)

			Convey("Then total multiplicity should equal the product of per-event counts", func() {
				want := delta.ExpectedCount(2) * delta.ExpectedCount(3) * delta.ExpectedCount(3)
				So(res.Run.Combinations, ShouldEqual, want)
				So(uint64(res.Summary.Combinations), ShouldEqual, want)

				var byChampion int64
				for _, c := range res.Summary.ByChampion {
					byChampion += c.Combinations
				}
				So(byChampion, ShouldEqual, res.Summary.Combinations)
			})

			Convey("And the stored states should match an independent sequential fold", func() {
				var dists []convolution.Distribution
				for _, e := range events {
					d, err := delta.Generate(e.Table)
					So(err, ShouldBeNil)
					dists = append(dists, d)
				}
				folded, err := convolution.Fold(dists...)
				So(err, ShouldBeNil)
				So(res.Run.States, ShouldEqual, len(folded))
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := svc.Run(ctx, false)

			Convey("Then the run should fail and leave the table unpopulated", func() {
				So(err, ShouldNotBeNil)
				ok, perr := svc.Populated(context.Background())
				So(perr, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestService_RunTies(t *testing.T) {
	Convey("Given two short events", t, func() {
		store := openStore(t)
		first, second := sprint(3, 1), race("race", 3, 1)
		svc := service.New(
			service.WithStore(store),
			service.WithStandings(smallBase),
			service.WithEvents(first, second),
			service.WithTieEvents(first, second),
		)
		ctx := context.Background()

		Convey("When running tie scenarios twice", func() {
			a, err := svc.RunTies(ctx, false)
			So(err, ShouldBeNil)
			b, err := svc.RunTies(ctx, false)
			So(err, ShouldBeNil)

			Convey("Then the table should be written once", func() {
				So(a.Computed, ShouldBeTrue)
				So(b.Computed, ShouldBeFalse)
				So(store.tieWrites, ShouldEqual, 1)
				So(b.Summary, ShouldResemble, a.Summary)
				So(a.Run.Combinations, ShouldEqual, 13*13)
			})

			Convey("And stored ties should be readable", func() {
				recs, err := svc.Ties(ctx, repository.TieFilter{})
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, a.Summary.Total)
				sum, err := svc.TieSummary(ctx)
				So(err, ShouldBeNil)
				So(sum, ShouldResemble, a.Summary)
			})
		})
	})
}

func TestService_ReadsPopulateOnDemand(t *testing.T) {
	Convey("Given a service whose tables were never populated", t, func() {
		store := openStore(t)
		svc := service.New(
			service.WithStore(store),
			service.WithStandings(smallBase),
			service.WithEvents(sprint(3, 1)),
			service.WithTieEvents(sprint(3, 1), race("race", 3, 1)),
		)
		ctx := context.Background()

		Convey("When the summary is read", func() {
			sum, err := svc.Summary(ctx)

			Convey("Then the outcome table should be computed first", func() {
				So(err, ShouldBeNil)
				So(sum.States, ShouldEqual, 13)
				So(store.outcomeWrites, ShouldEqual, 1)
			})

			Convey("And a table emptied at runtime should be rebuilt by the next read", func() {
				So(store.Store.ReplaceOutcomes(ctx, nil), ShouldBeNil)
				points, err := svc.PointsDistribution(ctx)
				So(err, ShouldBeNil)
				So(points, ShouldNotBeEmpty)
				So(store.outcomeWrites, ShouldEqual, 2)

				opts, err := svc.FilterOptions(ctx)
				So(err, ShouldBeNil)
				So(opts.Champions, ShouldNotBeEmpty)
				So(store.outcomeWrites, ShouldEqual, 2)
			})
		})

		Convey("When the tie summary is read", func() {
			sum, err := svc.TieSummary(ctx)

			Convey("Then the tie table should be computed first", func() {
				So(err, ShouldBeNil)
				So(sum.Total, ShouldBeGreaterThan, 0)
				So(store.tieWrites, ShouldEqual, 1)
				So(store.outcomeWrites, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a service with a store but no events", t, func() {
		svc := service.New(service.WithStore(openStore(t)))

		Convey("Then reads should still report the table as not populated", func() {
			_, err := svc.Summary(context.Background())
			So(errors.Is(err, repository.ErrNotPopulated), ShouldBeTrue)
			_, err = svc.Ties(context.Background(), repository.TieFilter{})
			So(errors.Is(err, repository.ErrNotPopulated), ShouldBeTrue)
		})
	})
}

func TestService_Project(t *testing.T) {
	Convey("Given the season standings and the remaining events", t, func() {
		base := types.Standings{
			types.Norris:     {Points: 390, Wins: 7, Seconds: 6, Thirds: 4},
			types.Piastri:    {Points: 366, Wins: 7, Seconds: 4, Thirds: 3},
			types.Verstappen: {Points: 366, Wins: 6, Seconds: 4, Thirds: 3},
		}
		svc := service.New(
			service.WithStandings(base),
			service.WithEvents(
				sprint(scoring.SprintPoints...),
				race("Race Qatar", scoring.RacePoints...),
				race("Race Abu Dhabi", scoring.RacePoints...),
			),
		)
		ctx := context.Background()

		Convey("When Piastri wins everything and Norris does not score", func() {
			p, err := svc.Project(ctx, map[string]delta.Assignment{
				"sprint":         {scoring.Sentinel, 1, 2},
				"Race Qatar":     {scoring.Sentinel, 1, 2},
				"Race Abu Dhabi": {scoring.Sentinel, 1, 2},
			})

			Convey("Then Piastri should be champion on points", func() {
				So(err, ShouldBeNil)
				So(p.Final[types.Piastri].Points, ShouldEqual, 366+8+25+25)
				So(p.Champion, ShouldEqual, types.Piastri)
				So(p.Criterion, ShouldEqual, types.ByPoints)
			})
		})

		Convey("When an unknown event is named", func() {
			_, err := svc.Project(ctx, map[string]delta.Assignment{"Race Vegas": {1, 2, 3}})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, service.ErrUnknownEvent), ShouldBeTrue)
			})
		})

		Convey("When two drivers share a position", func() {
			_, err := svc.Project(ctx, map[string]delta.Assignment{"Race Qatar": {1, 1, 3}})

			Convey("Then the assignment should be rejected", func() {
				So(errors.Is(err, delta.ErrSharedPosition), ShouldBeTrue)
			})
		})
	})
}

func TestConfigOptions(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.New()

		Convey("When building service options from it", func() {
			opts, err := service.ConfigOptions(cfg)
			So(err, ShouldBeNil)
			svc := service.New(opts...)

			Convey("Then the service should carry the configured season", func() {
				So(svc.Standings()[types.Norris].Points, ShouldEqual, 390)
				So(len(svc.Events()), ShouldEqual, 3)
				So(svc.Events()[0].Name, ShouldEqual, "Sprint Qatar")
				So(svc.GetStats()["partitions"], ShouldEqual, cfg.FoldPartitions)
			})
		})

		Convey("When a tie event is not configured", func() {
			cfg.TieEvents = []string{"Sprint Qatar", "Race Vegas"}
			_, err := service.ConfigOptions(cfg)

			Convey("Then the configuration should be rejected", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
