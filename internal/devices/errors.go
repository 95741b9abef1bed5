package devices

import "errors"

// Sentinel kinds for monitor errors.
var (
	ErrStopTimeout    = errors.New("device monitor did not stop in time")
	ErrStillStopping  = errors.New("previous poll loop has not exited")
	ErrDeviceNotFound = errors.New("device not found")
	ErrNoPlatform     = errors.New("no input platform configured")
)
