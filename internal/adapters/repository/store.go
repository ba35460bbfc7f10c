// Package repository persists outcome and tie tables and serves the read side.
package repository

import (
	"context"
	"time"

	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
)

// Table names.
const (
	TableOutcomes = "championship_outcomes"
	TableTies     = "tie_scenarios"
	TableRuns     = "simulation_runs"
)

// Store provides read/write access to the simulation tables.
type Store interface {
	// Populated reports whether table exists and holds at least one row.
	// A missing table is not an error.
	Populated(ctx context.Context, table string) (bool, error)

	// ReplaceOutcomes drops and rebuilds the outcome table and its views
	// in one transaction.
	ReplaceOutcomes(ctx context.Context, records []outcome.Record) error
	// ReplaceTies drops and rebuilds the tie table in one transaction.
	ReplaceTies(ctx context.Context, records []ties.Record) error
	// RecordRun appends run metadata.
	RecordRun(ctx context.Context, run Run) error
	// LastRun returns the most recent run for table or ErrNotFound.
	LastRun(ctx context.Context, table string) (Run, error)

	// Summary aggregates the outcome table by champion and criterion.
	Summary(ctx context.Context) (Summary, error)
	// Outcomes returns outcome records matching f, heaviest first.
	Outcomes(ctx context.Context, f Filter) ([]outcome.Record, error)
	// FilterOptions returns the values a client can filter outcomes by.
	FilterOptions(ctx context.Context) (FilterOptions, error)
	// PointsDistribution weights each driver's final points by multiplicity.
	PointsDistribution(ctx context.Context) ([]PointsShare, error)
	// Ties returns tie records matching f.
	Ties(ctx context.Context, f TieFilter) ([]ties.Record, error)
	// TieSummary aggregates the tie table.
	TieSummary(ctx context.Context) (ties.Summary, error)

	Close() error
}

// Run is the metadata of one population run.
type Run struct {
	ID           string        `json:"id"`
	Table        string        `json:"table"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	States       int           `json:"states"`
	Combinations uint64        `json:"combinations"`
}

// ChampionShare is the weight of one champion across all combinations.
type ChampionShare struct {
	Champion     types.Driver `json:"champion"`
	States       int64        `json:"states"`
	Combinations int64        `json:"combinations"`
	ChancePct    float64      `json:"chance_pct"`
}

// CriterionShare is the weight of one deciding criterion.
type CriterionShare struct {
	Criterion    types.Criterion `json:"criterion"`
	Combinations int64           `json:"combinations"`
	Pct          float64         `json:"pct"`
}

// CrossShare is the weight of one champion and criterion pair.
type CrossShare struct {
	Champion     types.Driver    `json:"champion"`
	Criterion    types.Criterion `json:"criterion"`
	Combinations int64           `json:"combinations"`
	Pct          float64         `json:"pct"`
}

// Summary is the aggregate view of the outcome table.
type Summary struct {
	States       int64            `json:"states"`
	Combinations int64            `json:"combinations"`
	ByChampion   []ChampionShare  `json:"by_champion"`
	ByCriterion  []CriterionShare `json:"by_criterion"`
	Cross        []CrossShare     `json:"cross"`
}

// Filter selects outcome records. Nil fields do not filter.
type Filter struct {
	Champion  *types.Driver
	Criterion *types.Criterion
	PointsMin *int
	PointsMax *int
	// Limit caps the number of rows; zero means the store default.
	Limit int
}

// FilterOptions lists the distinct filter values present in the outcome table.
type FilterOptions struct {
	Champions []types.Driver    `json:"champions"`
	Criteria  []types.Criterion `json:"criteria"`
	PointsMin int               `json:"points_min"`
	PointsMax int               `json:"points_max"`
}

// PointsShare is the weight of one final points total for one driver.
type PointsShare struct {
	Driver       types.Driver `json:"driver"`
	Points       int          `json:"points"`
	States       int64        `json:"states"`
	Combinations int64        `json:"combinations"`
	Pct          float64      `json:"pct"`
}

// TieFilter selects tie records. Empty fields do not filter.
type TieFilter struct {
	Kind  ties.Kind
	Tied  string
	Limit int
}
