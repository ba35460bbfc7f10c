package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
	"github.com/okian/champsim/pkg/metrics"
)

func (s *SQLiteStore) requirePopulated(ctx context.Context, table string) error {
	ok, err := s.Populated(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotPopulated, table)
	}
	return nil
}

func observe(query string, start time.Time) {
	metrics.RecordStoreQuery(query, time.Since(start))
}

// Summary reads totals and the derived views.
func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	defer observe("summary", time.Now())
	if err := s.requirePopulated(ctx, TableOutcomes); err != nil {
		return Summary{}, err
	}

	var sum Summary
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(multiplicity), 0) FROM "+TableOutcomes).
		Scan(&sum.States, &sum.Combinations)
	if err != nil {
		return Summary{}, s.fail("summary", fmt.Errorf("%w: totals: %w", ErrStoreUnavailable, err))
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT champion, states, combinations, chance_pct FROM v_champion_summary")
	if err != nil {
		return Summary{}, s.fail("summary", fmt.Errorf("%w: champions: %w", ErrStoreUnavailable, err))
	}
	for rows.Next() {
		var (
			c  ChampionShare
			id string
		)
		if err := rows.Scan(&id, &c.States, &c.Combinations, &c.ChancePct); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		if c.Champion, err = types.ParseDriver(id); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		sum.ByChampion = append(sum.ByChampion, c)
	}
	if err := closeRows(rows); err != nil {
		return Summary{}, s.fail("summary", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT criterion, combinations, pct FROM v_criterion_summary")
	if err != nil {
		return Summary{}, s.fail("summary", fmt.Errorf("%w: criteria: %w", ErrStoreUnavailable, err))
	}
	for rows.Next() {
		var (
			c    CriterionShare
			name string
		)
		if err := rows.Scan(&name, &c.Combinations, &c.Pct); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		if c.Criterion, err = types.ParseCriterion(name); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		sum.ByCriterion = append(sum.ByCriterion, c)
	}
	if err := closeRows(rows); err != nil {
		return Summary{}, s.fail("summary", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT champion, criterion,
		SUM(multiplicity) AS combinations,
		ROUND(100.0 * SUM(multiplicity) / (SELECT SUM(multiplicity) FROM `+TableOutcomes+`), 4) AS pct
	FROM `+TableOutcomes+`
	GROUP BY champion, criterion
	ORDER BY champion, combinations DESC`)
	if err != nil {
		return Summary{}, s.fail("summary", fmt.Errorf("%w: cross: %w", ErrStoreUnavailable, err))
	}
	for rows.Next() {
		var (
			c        CrossShare
			id       string
			critName string
		)
		if err := rows.Scan(&id, &critName, &c.Combinations, &c.Pct); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		if c.Champion, err = types.ParseDriver(id); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		if c.Criterion, err = types.ParseCriterion(critName); err != nil {
			_ = rows.Close()
			return Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		sum.Cross = append(sum.Cross, c)
	}
	if err := closeRows(rows); err != nil {
		return Summary{}, s.fail("summary", err)
	}
	return sum, nil
}

func (s *SQLiteStore) limit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, fmt.Errorf("%w: limit %d", ErrInvalidFilter, n)
	case n == 0 || n > s.defaultLimit:
		return s.defaultLimit, nil
	default:
		return n, nil
	}
}

// Outcomes returns matching records ordered by multiplicity, heaviest first.
func (s *SQLiteStore) Outcomes(ctx context.Context, f Filter) ([]outcome.Record, error) {
	defer observe("outcomes", time.Now())
	limit, err := s.limit(f.Limit)
	if err != nil {
		return nil, err
	}
	if f.PointsMin != nil && f.PointsMax != nil && *f.PointsMin > *f.PointsMax {
		return nil, fmt.Errorf("%w: pts_min %d > pts_max %d", ErrInvalidFilter, *f.PointsMin, *f.PointsMax)
	}

	var (
		where []string
		args  []any
	)
	if f.Champion != nil {
		if !f.Champion.Valid() {
			return nil, fmt.Errorf("%w: champion %d", ErrInvalidFilter, *f.Champion)
		}
		where = append(where, "champion = ?")
		args = append(args, f.Champion.String())
	}
	if f.Criterion != nil {
		if !slices.Contains(types.Criteria(), *f.Criterion) {
			return nil, fmt.Errorf("%w: criterion %d", ErrInvalidFilter, *f.Criterion)
		}
		where = append(where, "criterion = ?")
		args = append(args, f.Criterion.String())
	}
	if f.PointsMin != nil {
		where = append(where, championPoints()+" >= ?")
		args = append(args, *f.PointsMin)
	}
	if f.PointsMax != nil {
		where = append(where, championPoints()+" <= ?")
		args = append(args, *f.PointsMax)
	}

	if err := s.requirePopulated(ctx, TableOutcomes); err != nil {
		return nil, err
	}

	q := "SELECT " + strings.Join(outcomeColumns, ", ") + " FROM " + TableOutcomes
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY multiplicity DESC, rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.fail("outcomes", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	var out []outcome.Record
	for rows.Next() {
		r, err := scanOutcome(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.fail("outcomes", err)
	}
	return out, nil
}

// FilterOptions lists champions and criteria present and the final points range.
func (s *SQLiteStore) FilterOptions(ctx context.Context) (FilterOptions, error) {
	defer observe("filter_options", time.Now())
	if err := s.requirePopulated(ctx, TableOutcomes); err != nil {
		return FilterOptions{}, err
	}

	var opts FilterOptions
	for _, col := range []string{"champion", "criterion"} {
		rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT "+col+" FROM "+TableOutcomes)
		if err != nil {
			return FilterOptions{}, s.fail("filter_options", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				_ = rows.Close()
				return FilterOptions{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
			}
			if col == "champion" {
				d, err := types.ParseDriver(v)
				if err != nil {
					_ = rows.Close()
					return FilterOptions{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
				}
				opts.Champions = append(opts.Champions, d)
				continue
			}
			c, err := types.ParseCriterion(v)
			if err != nil {
				_ = rows.Close()
				return FilterOptions{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
			}
			opts.Criteria = append(opts.Criteria, c)
		}
		if err := closeRows(rows); err != nil {
			return FilterOptions{}, s.fail("filter_options", err)
		}
	}
	slices.Sort(opts.Champions)
	slices.Sort(opts.Criteria)

	final := strings.Join(perDriver("final_points"), ", ")
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(MIN("+final+")), MAX(MAX("+final+")) FROM "+TableOutcomes).
		Scan(&opts.PointsMin, &opts.PointsMax)
	if err != nil {
		return FilterOptions{}, s.fail("filter_options", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	return opts, nil
}

// PointsDistribution groups the outcome table by each driver's final points,
// ordered by driver then points.
func (s *SQLiteStore) PointsDistribution(ctx context.Context) ([]PointsShare, error) {
	defer observe("points_distribution", time.Now())
	if err := s.requirePopulated(ctx, TableOutcomes); err != nil {
		return nil, err
	}

	total := "(SELECT SUM(multiplicity) FROM " + TableOutcomes + ")"
	selects := make([]string, 0, types.DriverCount)
	for _, d := range types.Drivers() {
		selects = append(selects, fmt.Sprintf(
			"SELECT '%[1]s', final_points_%[1]s, COUNT(*), SUM(multiplicity), "+
				"ROUND(100.0 * SUM(multiplicity) / %[2]s, 2) FROM %[3]s GROUP BY final_points_%[1]s",
			d, total, TableOutcomes))
	}
	rows, err := s.db.QueryContext(ctx, strings.Join(selects, " UNION ALL "))
	if err != nil {
		return nil, s.fail("points_distribution", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	var out []PointsShare
	for rows.Next() {
		var (
			p  PointsShare
			id string
		)
		if err := rows.Scan(&id, &p.Points, &p.States, &p.Combinations, &p.Pct); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		if p.Driver, err = types.ParseDriver(id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		out = append(out, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.fail("points_distribution", err)
	}
	slices.SortFunc(out, func(a, b PointsShare) int {
		if c := cmp.Compare(a.Driver, b.Driver); c != 0 {
			return c
		}
		return cmp.Compare(a.Points, b.Points)
	})
	return out, nil
}

// Ties returns tie records in generation order.
func (s *SQLiteStore) Ties(ctx context.Context, f TieFilter) ([]ties.Record, error) {
	defer observe("ties", time.Now())
	limit, err := s.limit(f.Limit)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		k, err := ties.ParseKind(string(f.Kind))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		where = append(where, "kind = ?")
		args = append(args, string(k))
	}
	if f.Tied != "" {
		drivers, err := ties.ParseLabel(f.Tied)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		where = append(where, "tied_drivers = ?")
		args = append(args, ties.Label(drivers))
	}

	if err := s.requirePopulated(ctx, TableTies); err != nil {
		return nil, err
	}

	q := "SELECT " + strings.Join(tieColumns, ", ") + " FROM " + TableTies
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.fail("ties", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	var out []ties.Record
	for rows.Next() {
		r, err := scanTie(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, s.fail("ties", err)
	}
	return out, nil
}

// TieSummary counts ties per kind and per tied pair.
func (s *SQLiteStore) TieSummary(ctx context.Context) (ties.Summary, error) {
	defer observe("tie_summary", time.Now())
	if err := s.requirePopulated(ctx, TableTies); err != nil {
		return ties.Summary{}, err
	}

	sum := ties.Summary{ByPair: make(map[string]int)}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(kind = 'double'), 0),
		COALESCE(SUM(kind = 'triple'), 0),
		COALESCE(MIN(tie_points), 0),
		COALESCE(MAX(tie_points), 0)
	FROM `+TableTies).Scan(&sum.Total, &sum.Doubles, &sum.Triples, &sum.MinPoints, &sum.MaxPoints)
	if err != nil {
		return ties.Summary{}, s.fail("tie_summary", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT tied_drivers, COUNT(*) FROM "+TableTies+" WHERE kind = 'double' GROUP BY tied_drivers")
	if err != nil {
		return ties.Summary{}, s.fail("tie_summary", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	for rows.Next() {
		var (
			pair string
			n    int
		)
		if err := rows.Scan(&pair, &n); err != nil {
			_ = rows.Close()
			return ties.Summary{}, fmt.Errorf("%w: %w", ErrCorruptRow, err)
		}
		sum.ByPair[pair] = n
	}
	if err := closeRows(rows); err != nil {
		return ties.Summary{}, s.fail("tie_summary", err)
	}
	return sum, nil
}

type rowCloser interface {
	Err() error
	Close() error
}

func closeRows(rows rowCloser) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return rows.Close()
}
