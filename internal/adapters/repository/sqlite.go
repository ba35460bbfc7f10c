package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/pkg/logger"
	"github.com/okian/champsim/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultBatchSize   = 5_000
	defaultLimit       = 10_000
	defaultBusyTimeout = 5_000
	timestampLayout    = "2006-01-02 15:04:05.000000000"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db           *sql.DB
	batchSize    int
	defaultLimit int
	log          logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		batchSize:    defaultBatchSize,
		defaultLimit: defaultLimit,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, defaultBusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreUnavailable, path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrStoreUnavailable, path, err)
	}
	if _, err := db.ExecContext(ctx, createRuns); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init %s: %w", ErrStoreUnavailable, TableRuns, err)
	}
	s.db = db
	s.log.Debug(ctx, "sqlite store opened", logger.String("path", path))
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Populated reports whether table exists and is non-empty.
func (s *SQLiteStore) Populated(ctx context.Context, table string) (bool, error) {
	if _, ok := knownTables[table]; !ok && table != TableRuns {
		return false, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, s.fail("populated", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	if n == 0 {
		return false, nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+")").Scan(&exists); err != nil {
		return false, s.fail("populated", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	return exists, nil
}

// ReplaceOutcomes rebuilds the outcome table and its views atomically.
func (s *SQLiteStore) ReplaceOutcomes(ctx context.Context, records []outcome.Record) error {
	return s.replace(ctx, TableOutcomes, len(records), func(i int) ([]any, error) {
		return outcomeArgs(records[i])
	}, outcomeViewNames, outcomeViews)
}

// ReplaceTies rebuilds the tie table atomically.
func (s *SQLiteStore) ReplaceTies(ctx context.Context, records []ties.Record) error {
	return s.replace(ctx, TableTies, len(records), func(i int) ([]any, error) {
		return tieArgs(records[i]), nil
	}, nil, nil)
}

func (s *SQLiteStore) replace(
	ctx context.Context,
	table string,
	n int,
	rowArgs func(i int) ([]any, error),
	viewNames, views []string,
) error {
	start := time.Now()
	columns := knownTables[table]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("replace", fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err))
	}
	defer func() { _ = tx.Rollback() }()

	ddl := make([]string, 0, len(viewNames)+2)
	for _, v := range viewNames {
		ddl = append(ddl, "DROP VIEW IF EXISTS "+v)
	}
	ddl = append(ddl, "DROP TABLE IF EXISTS "+table, createTable(table, columns))
	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.fail("replace", fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, table, err))
		}
	}

	perStmt := s.rowsPerStatement(len(columns))
	stmts := make(map[int]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			_ = st.Close()
		}
	}()
	vals := make([]any, 0, perStmt*len(columns))
	for off := 0; off < n; off += perStmt {
		size := min(perStmt, n-off)
		st, ok := stmts[size]
		if !ok {
			st, err = tx.PrepareContext(ctx, insertStatement(table, columns, size))
			if err != nil {
				return s.fail("replace", fmt.Errorf("%w: prepare %s: %w", ErrStoreUnavailable, table, err))
			}
			stmts[size] = st
		}
		vals = vals[:0]
		for i := off; i < off+size; i++ {
			a, err := rowArgs(i)
			if err != nil {
				return s.fail("replace", err)
			}
			vals = append(vals, a...)
		}
		if _, err := st.ExecContext(ctx, vals...); err != nil {
			return s.fail("replace", fmt.Errorf("%w: insert %s: %w", ErrStoreUnavailable, table, err))
		}
	}

	for _, stmt := range views {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.fail("replace", fmt.Errorf("%w: view: %w", ErrStoreUnavailable, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return s.fail("replace", fmt.Errorf("%w: commit %s: %w", ErrStoreUnavailable, table, err))
	}

	elapsed := time.Since(start)
	metrics.RecordStoreWrite(table, n, elapsed)
	s.log.Info(ctx, "table replaced",
		logger.String("table", table),
		logger.Int("rows", n),
		logger.Int("rows_per_statement", perStmt),
		logger.Duration("elapsed", elapsed))
	return nil
}

func (s *SQLiteStore) rowsPerStatement(columns int) int {
	return max(1, min(s.batchSize, maxVariables/columns))
}

// RecordRun appends run metadata.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	if run.Combinations > math.MaxInt64 {
		return fmt.Errorf("%w: combinations %d", ErrOutOfRange, run.Combinations)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO "+TableRuns+" (id, table_name, started_at, duration_ms, states, combinations) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.Table, run.StartedAt.UTC().Format(timestampLayout),
		run.Duration.Milliseconds(), run.States, int64(run.Combinations))
	if err != nil {
		return s.fail("record_run", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	return nil
}

// LastRun returns the latest run recorded for table.
func (s *SQLiteStore) LastRun(ctx context.Context, table string) (Run, error) {
	var (
		r          Run
		started    string
		durationMs int64
		combos     int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, table_name, started_at, duration_ms, states, combinations FROM "+TableRuns+
			" WHERE table_name = ? ORDER BY started_at DESC, rowid DESC LIMIT 1", table).
		Scan(&r.ID, &r.Table, &started, &durationMs, &r.States, &combos)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: no run for %s", ErrNotFound, table)
	}
	if err != nil {
		return Run{}, s.fail("last_run", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	if r.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
		return Run{}, fmt.Errorf("%w: started_at %q: %w", ErrCorruptRow, started, err)
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.Combinations = uint64(combos)
	return r, nil
}

func (s *SQLiteStore) fail(op string, err error) error {
	metrics.RecordStoreError(op)
	return err
}
