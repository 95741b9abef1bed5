package probe

import "errors"

var (
	// ErrUnhealthy is returned when /healthz does not answer 200.
	ErrUnhealthy = errors.New("daemon unhealthy")
	// ErrUnexpectedStatus is returned when an endpoint answers with a status the probe cannot interpret.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInconsistent is returned when the daemon's reports disagree with each other.
	ErrInconsistent = errors.New("inconsistent daemon state")
)
