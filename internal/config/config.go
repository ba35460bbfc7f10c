// Package config defines process configuration and its conversion into
// immutable domain values.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/types"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DBPath is the SQLite database file holding the outcome tables.
	DBPath string `koanf:"db_path" validate:"required"`

	// FoldPartitions bounds the goroutines used per convolution step.
	FoldPartitions int `koanf:"fold_partitions" validate:"min=1,max=1024"`

	// BatchSize is the number of rows inserted per prepared-statement batch.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// MaxOutcomeLimit caps GET /outcomes?limit.
	MaxOutcomeLimit int `koanf:"max_outcome_limit" validate:"min=1"`

	// Standings maps driver ids to their current season record.
	Standings map[string]DriverStats `koanf:"standings" validate:"len=3,dive,keys,oneof=norris piastri verstappen,endkeys"`

	// SprintPoints and RacePoints are the awards for positions 1..n.
	SprintPoints []int `koanf:"sprint_points" validate:"min=1,max=98,dive,min=0"`
	RacePoints   []int `koanf:"race_points" validate:"min=1,max=98,dive,min=0"`

	// Events lists the remaining sessions in calendar order.
	Events []EventConfig `koanf:"events" validate:"min=1,dive"`

	// TieEvents names the two events used for the tie-scenario table.
	TieEvents []string `koanf:"tie_events" validate:"len=2,dive,required"`
}

// DriverStats is one driver's season record.
type DriverStats struct {
	Points  int `koanf:"points" validate:"min=0"`
	Wins    int `koanf:"wins" validate:"min=0"`
	Seconds int `koanf:"seconds" validate:"min=0"`
	Thirds  int `koanf:"thirds" validate:"min=0"`
}

// EventConfig describes one remaining session.
type EventConfig struct {
	Name string `koanf:"name" validate:"required"`
	Kind string `koanf:"kind" validate:"oneof=sprint race"`
}

var validate = validator.New()

// New creates a Config holding the standings before the last three events
// of the season.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		DBPath:          "champsim.db",
		FoldPartitions:  runtime.NumCPU(),
		BatchSize:       5_000,
		MaxOutcomeLimit: 10_000,
		Standings: map[string]DriverStats{
			"norris":     {Points: 390, Wins: 7, Seconds: 6, Thirds: 4},
			"piastri":    {Points: 366, Wins: 7, Seconds: 4, Thirds: 3},
			"verstappen": {Points: 366, Wins: 6, Seconds: 4, Thirds: 3},
		},
		SprintPoints: append([]int(nil), scoring.SprintPoints...),
		RacePoints:   append([]int(nil), scoring.RacePoints...),
		Events: []EventConfig{
			{Name: "Sprint Qatar", Kind: string(scoring.Sprint)},
			{Name: "Race Qatar", Kind: string(scoring.Race)},
			{Name: "Race Abu Dhabi", Kind: string(scoring.Race)},
		},
		TieEvents: []string{"Sprint Qatar", "Race Qatar"},
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.Events))
	for _, e := range c.Events {
		if seen[e.Name] {
			return fmt.Errorf("%w: duplicate event %q", ErrInvalidConfig, e.Name)
		}
		seen[e.Name] = true
	}
	for _, name := range c.TieEvents {
		if !seen[name] {
			return fmt.Errorf("%w: tie event %q is not a configured event", ErrInvalidConfig, name)
		}
	}
	if c.TieEvents[0] == c.TieEvents[1] {
		return fmt.Errorf("%w: tie events must differ", ErrInvalidConfig)
	}
	return nil
}

// ToStandings converts the configured records into domain standings.
func (c *Config) ToStandings() (types.Standings, error) {
	var s types.Standings
	if len(c.Standings) != types.DriverCount {
		return s, fmt.Errorf("%w: need standings for %d drivers, got %d", ErrInvalidConfig, types.DriverCount, len(c.Standings))
	}
	for id, st := range c.Standings {
		d, err := types.ParseDriver(id)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		s[d] = types.Stats{Points: st.Points, Wins: st.Wins, Seconds: st.Seconds, Thirds: st.Thirds}
	}
	return s, nil
}

// Table returns the configured point table for kind.
func (c *Config) Table(kind scoring.Kind) (scoring.Table, error) {
	var points []int
	switch kind {
	case scoring.Sprint:
		points = c.SprintPoints
	case scoring.Race:
		points = c.RacePoints
	default:
		return scoring.Table{}, fmt.Errorf("%w: %w", ErrInvalidConfig, scoring.ErrUnknownKind)
	}
	t, err := scoring.NewTable(kind, points)
	if err != nil {
		return scoring.Table{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return t, nil
}

// ToEvents converts the configured sessions into domain events, in order.
func (c *Config) ToEvents() ([]scoring.Event, error) {
	out := make([]scoring.Event, 0, len(c.Events))
	for _, e := range c.Events {
		kind, err := scoring.ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: event %q: %w", ErrInvalidConfig, e.Name, err)
		}
		t, err := c.Table(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, scoring.Event{Name: e.Name, Table: t})
	}
	return out, nil
}

// TieEventPair returns the two events used by the tie-scenario table.
func (c *Config) TieEventPair() (scoring.Event, scoring.Event, error) {
	if len(c.TieEvents) != 2 {
		return scoring.Event{}, scoring.Event{}, fmt.Errorf("%w: need two tie events, got %d", ErrInvalidConfig, len(c.TieEvents))
	}
	events, err := c.ToEvents()
	if err != nil {
		return scoring.Event{}, scoring.Event{}, err
	}
	var pair [2]scoring.Event
	for i, name := range c.TieEvents {
		found := false
		for _, e := range events {
			if e.Name == name {
				pair[i] = e
				found = true
				break
			}
		}
		if !found {
			return scoring.Event{}, scoring.Event{}, fmt.Errorf("%w: tie event %q is not a configured event", ErrInvalidConfig, name)
		}
	}
	return pair[0], pair[1], nil
}
