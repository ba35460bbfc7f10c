package service

import (
	"github.com/okian/champsim/internal/config"
)

// ConfigOptions translates a loaded configuration into service options.
// The store and logger are left to the caller.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	standings, err := cfg.ToStandings()
	if err != nil {
		return nil, err
	}
	events, err := cfg.ToEvents()
	if err != nil {
		return nil, err
	}
	first, second, err := cfg.TieEventPair()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithStandings(standings),
		WithEvents(events...),
		WithTieEvents(first, second),
		WithFoldPartitions(cfg.FoldPartitions),
	}, nil
}
