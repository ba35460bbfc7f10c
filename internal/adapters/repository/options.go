package repository

import "github.com/okian/champsim/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithBatchSize sets the number of rows inserted per statement. It is capped
// so a statement never exceeds SQLite's bound-parameter limit.
func WithBatchSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDefaultLimit sets the row cap applied when a filter has no limit.
func WithDefaultLimit(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithLogger sets the logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}
