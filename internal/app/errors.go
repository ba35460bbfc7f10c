package service

import "errors"

// Sentinel errors returned by the orchestrator.
var (
	ErrNoStore      = errors.New("no store configured")
	ErrNoEvents     = errors.New("no events configured")
	ErrNoTieEvents  = errors.New("no tie events configured")
	ErrUnknownEvent = errors.New("unknown event")
)
