// Package service orchestrates population of the outcome and tie tables and
// serves the read side consumed by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/champsim/internal/adapters/repository"
	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/convolution"
	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
	"github.com/okian/champsim/pkg/logger"
	"github.com/okian/champsim/pkg/metrics"
)

// State is the population state of a table.
type State int

// Table states. A table moves to Populated after a successful run and only
// back to Unpopulated if it is dropped outside this process.
const (
	Unpopulated State = iota
	Populated
)

func (s State) String() string {
	if s == Populated {
		return "populated"
	}
	return "unpopulated"
}

// Result describes a call to Run.
type Result struct {
	Computed bool
	Run      repository.Run
	Summary  repository.Summary
}

// TieResult describes a call to RunTies.
type TieResult struct {
	Computed bool
	Run      repository.Run
	Summary  ties.Summary
}

// Service runs simulations against a fixed snapshot of standings and events.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	standings  types.Standings
	events     []scoring.Event
	tieEvents  []scoring.Event
	partitions int

	lastRuns map[string]repository.Run

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the storage collaborator.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStandings sets the standings the remaining events are applied to.
func WithStandings(st types.Standings) Option {
	return func(s *Service) {
		s.standings = st
	}
}

// WithEvents sets the remaining events in calendar order.
func WithEvents(events ...scoring.Event) Option {
	return func(s *Service) {
		s.events = append([]scoring.Event(nil), events...)
	}
}

// WithTieEvents sets the two events enumerated by RunTies.
func WithTieEvents(first, second scoring.Event) Option {
	return func(s *Service) {
		s.tieEvents = []scoring.Event{first, second}
	}
}

// WithFoldPartitions sets the number of partitions per convolution step.
func WithFoldPartitions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.partitions = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Standings and events are copied and never
// mutated afterwards.
func New(opts ...Option) *Service {
	s := &Service{
		partitions: 1,
		lastRuns:   make(map[string]repository.Run),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Populated reports whether the outcome table is populated.
func (s *Service) Populated(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, ErrNoStore
	}
	return s.store.Populated(ctx, repository.TableOutcomes)
}

// State returns the population state of table.
func (s *Service) State(ctx context.Context, table string) (State, error) {
	if s.store == nil {
		return Unpopulated, ErrNoStore
	}
	ok, err := s.store.Populated(ctx, table)
	if err != nil {
		return Unpopulated, err
	}
	metrics.UpdatePopulated(table, ok)
	if ok {
		return Populated, nil
	}
	return Unpopulated, nil
}

// Run populates the outcome table. When the table is already populated and
// force is false nothing is computed and the stored summary is returned.
func (s *Service) Run(ctx context.Context, force bool) (Result, error) {
	if s.store == nil {
		return Result{}, ErrNoStore
	}
	if len(s.events) == 0 {
		return Result{}, ErrNoEvents
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	table := repository.TableOutcomes
	state, err := s.State(ctx, table)
	if err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		return Result{}, err
	}
	if state == Populated && !force {
		s.logger.Info(ctx, "outcomes already populated, skipping computation")
		_ = metrics.RecordRun(table, metrics.ResultSkipped)
		sum, err := s.store.Summary(ctx)
		if err != nil {
			return Result{}, err
		}
		run, err := s.store.LastRun(ctx, table)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Result{}, err
		}
		if run.Table == "" {
			run.Table = table
		}
		return Result{Computed: false, Run: run, Summary: sum}, nil
	}

	res, err := s.computeOutcomes(ctx)
	if err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		s.logger.Error(ctx, "outcome run failed", logger.Error(err))
		return Result{}, err
	}
	_ = metrics.RecordRun(table, metrics.ResultComputed)
	return res, nil
}

func (s *Service) computeOutcomes(ctx context.Context) (Result, error) {
	start := time.Now()
	table := repository.TableOutcomes
	s.logger.Info(ctx, "computing outcomes",
		logger.Int("events", len(s.events)),
		logger.Int("partitions", s.partitions))

	dists := make([]convolution.Distribution, 0, len(s.events))
	for _, e := range s.events {
		d, err := delta.Generate(e.Table)
		if err != nil {
			return Result{}, fmt.Errorf("event %s: %w", e.Name, err)
		}
		s.logger.Debug(ctx, "event distribution generated",
			logger.String("event", e.Name),
			logger.String("kind", string(e.Table.Kind)),
			logger.Int("states", len(d)))
		dists = append(dists, d)
	}

	expected, err := convolution.Expected(dists...)
	if err != nil {
		return Result{}, err
	}

	last := time.Now()
	shards, err := convolution.FoldShards(ctx, dists,
		convolution.WithPartitions(s.partitions),
		convolution.WithStepHook(func(step, states int) {
			metrics.RecordFoldStep(time.Since(last), states)
			s.logger.Debug(ctx, "fold step",
				logger.Int("step", step),
				logger.String("event", s.events[step-1].Name),
				logger.Int("states", states))
			last = time.Now()
		}))
	if err != nil {
		return Result{}, err
	}

	records := outcome.Materialize(s.standings, shards...)
	tally := outcome.Count(records)
	if tally.Combinations != expected {
		return Result{}, fmt.Errorf("%w: materialized %d, expected %d",
			convolution.ErrMultiplicityMismatch, tally.Combinations, expected)
	}

	if err := s.store.ReplaceOutcomes(ctx, records); err != nil {
		return Result{}, err
	}

	run := repository.Run{
		ID:           uuid.NewString(),
		Table:        table,
		StartedAt:    start,
		Duration:     time.Since(start),
		States:       tally.States,
		Combinations: tally.Combinations,
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		return Result{}, err
	}
	s.lastRuns[table] = run
	metrics.RecordRunDuration(table, run.Duration)
	metrics.UpdateRunSize(table, run.States, run.Combinations)
	metrics.UpdatePopulated(table, run.States > 0)

	sum, err := s.store.Summary(ctx)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info(ctx, "outcomes populated",
		logger.String("run_id", run.ID),
		logger.Int("states", run.States),
		logger.Uint64("combinations", run.Combinations),
		logger.Duration("elapsed", run.Duration))
	return Result{Computed: true, Run: run, Summary: sum}, nil
}

// RunTies populates the tie-scenario table with the same idempotence rule as Run.
func (s *Service) RunTies(ctx context.Context, force bool) (TieResult, error) {
	if s.store == nil {
		return TieResult{}, ErrNoStore
	}
	if len(s.tieEvents) != 2 {
		return TieResult{}, ErrNoTieEvents
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	table := repository.TableTies
	state, err := s.State(ctx, table)
	if err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		return TieResult{}, err
	}
	if state == Populated && !force {
		s.logger.Info(ctx, "tie scenarios already populated, skipping computation")
		_ = metrics.RecordRun(table, metrics.ResultSkipped)
		sum, err := s.store.TieSummary(ctx)
		if err != nil {
			return TieResult{}, err
		}
		run, err := s.store.LastRun(ctx, table)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return TieResult{}, err
		}
		if run.Table == "" {
			run.Table = table
		}
		return TieResult{Computed: false, Run: run, Summary: sum}, nil
	}

	start := time.Now()
	records, err := ties.Generate(s.standings, s.tieEvents[0], s.tieEvents[1])
	if err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		return TieResult{}, err
	}
	if err := s.store.ReplaceTies(ctx, records); err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		return TieResult{}, err
	}
	combos := delta.ExpectedCount(s.tieEvents[0].Table.ScoringPositions()) *
		delta.ExpectedCount(s.tieEvents[1].Table.ScoringPositions())
	run := repository.Run{
		ID:           uuid.NewString(),
		Table:        table,
		StartedAt:    start,
		Duration:     time.Since(start),
		States:       len(records),
		Combinations: combos,
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		_ = metrics.RecordRun(table, metrics.ResultFailed)
		return TieResult{}, err
	}
	s.lastRuns[table] = run
	_ = metrics.RecordRun(table, metrics.ResultComputed)
	metrics.RecordRunDuration(table, run.Duration)
	metrics.UpdateRunSize(table, run.States, run.Combinations)
	metrics.UpdatePopulated(table, run.States > 0)

	s.logger.Info(ctx, "tie scenarios populated",
		logger.String("run_id", run.ID),
		logger.String("first", s.tieEvents[0].Name),
		logger.String("second", s.tieEvents[1].Name),
		logger.Int("ties", len(records)),
		logger.Duration("elapsed", run.Duration))
	return TieResult{Computed: true, Run: run, Summary: ties.Summarize(records)}, nil
}

// Summary returns the stored outcome summary.
func (s *Service) Summary(ctx context.Context) (repository.Summary, error) {
	if s.store == nil {
		return repository.Summary{}, ErrNoStore
	}
	return withOutcomes(ctx, s, s.store.Summary)
}

// Outcomes returns stored outcome records matching f.
func (s *Service) Outcomes(ctx context.Context, f repository.Filter) ([]outcome.Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return withOutcomes(ctx, s, func(ctx context.Context) ([]outcome.Record, error) {
		return s.store.Outcomes(ctx, f)
	})
}

// FilterOptions returns the values the outcome table can be filtered by.
func (s *Service) FilterOptions(ctx context.Context) (repository.FilterOptions, error) {
	if s.store == nil {
		return repository.FilterOptions{}, ErrNoStore
	}
	return withOutcomes(ctx, s, s.store.FilterOptions)
}

// PointsDistribution returns, per driver, the final points weighted by
// multiplicity.
func (s *Service) PointsDistribution(ctx context.Context) ([]repository.PointsShare, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return withOutcomes(ctx, s, s.store.PointsDistribution)
}

// Ties returns stored tie records matching f.
func (s *Service) Ties(ctx context.Context, f repository.TieFilter) ([]ties.Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return withTies(ctx, s, func(ctx context.Context) ([]ties.Record, error) {
		return s.store.Ties(ctx, f)
	})
}

// TieSummary returns the stored tie summary.
func (s *Service) TieSummary(ctx context.Context) (ties.Summary, error) {
	if s.store == nil {
		return ties.Summary{}, ErrNoStore
	}
	return withTies(ctx, s, s.store.TieSummary)
}

// withOutcomes runs read and, if the outcome table is absent or empty,
// populates it and reads again.
func withOutcomes[T any](ctx context.Context, s *Service, read func(context.Context) (T, error)) (T, error) {
	v, err := read(ctx)
	if !errors.Is(err, repository.ErrNotPopulated) {
		return v, err
	}
	s.logger.Info(ctx, "outcome table not populated on read, computing")
	if _, rerr := s.Run(ctx, false); rerr != nil {
		if errors.Is(rerr, ErrNoEvents) {
			return v, err
		}
		var zero T
		return zero, rerr
	}
	return read(ctx)
}

// withTies is withOutcomes for the tie table.
func withTies[T any](ctx context.Context, s *Service, read func(context.Context) (T, error)) (T, error) {
	v, err := read(ctx)
	if !errors.Is(err, repository.ErrNotPopulated) {
		return v, err
	}
	s.logger.Info(ctx, "tie table not populated on read, computing")
	if _, rerr := s.RunTies(ctx, false); rerr != nil {
		if errors.Is(rerr, ErrNoTieEvents) {
			return v, err
		}
		var zero T
		return zero, rerr
	}
	return read(ctx)
}

// Project resolves the final ranking for chosen positions, keyed by event name.
// Nothing is persisted.
func (s *Service) Project(_ context.Context, positions map[string]delta.Assignment) (champion.Projection, error) {
	results := make([]champion.EventResult, 0, len(positions))
	for _, e := range s.events {
		if a, ok := positions[e.Name]; ok {
			results = append(results, champion.EventResult{Event: e, Positions: a})
		}
	}
	if len(results) != len(positions) {
		for name := range positions {
			if _, ok := s.event(name); !ok {
				return champion.Projection{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
			}
		}
	}
	return champion.Project(s.standings, results)
}

func (s *Service) event(name string) (scoring.Event, bool) {
	for _, e := range s.events {
		if e.Name == name {
			return e, true
		}
	}
	return scoring.Event{}, false
}

// Standings returns the standings snapshot the service simulates from.
func (s *Service) Standings() types.Standings {
	return s.standings
}

// Events returns a copy of the configured events.
func (s *Service) Events() []scoring.Event {
	return append([]scoring.Event(nil), s.events...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.events))
	for i, e := range s.events {
		names[i] = e.Name
	}
	stats := map[string]interface{}{
		"events":     names,
		"partitions": s.partitions,
	}
	for table, run := range s.lastRuns {
		stats[table] = map[string]interface{}{
			"runId":        run.ID,
			"states":       run.States,
			"combinations": run.Combinations,
			"durationMs":   run.Duration.Milliseconds(),
		}
	}
	return stats
}
