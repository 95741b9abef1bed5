package analytics

import "errors"

// Sentinel kinds for batcher errors.
var (
	ErrStopped       = errors.New("batcher stopped")
	ErrStopping      = errors.New("batcher stopping")
	ErrStopTimeout   = errors.New("batcher did not stop in time")
	ErrQueueFull     = errors.New("analytics queue full")
	ErrInvalidEvent  = errors.New("analytics event has no name")
	ErrNoDestination = errors.New("no analytics destination configured")
)
