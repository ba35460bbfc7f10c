package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotPopulated     = errors.New("table not populated")
	ErrNotFound         = errors.New("not found")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrUnknownTable     = errors.New("unknown table")
	ErrCorruptRow       = errors.New("corrupt row")
	ErrOutOfRange       = errors.New("value out of range for storage")
)
