package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrCorruptStore = errors.New("persisted events are corrupt")
	ErrEmptyPath    = errors.New("storage path is required")
)
