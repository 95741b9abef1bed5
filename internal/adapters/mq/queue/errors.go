package queue

import "errors"

// Sentinel errors returned by the deque.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
