package linuxjs

import "errors"

// Sentinel errors for the joystick backend.
var (
	ErrUnsupported = errors.New("linux joystick api is not available on this platform")
	ErrShortEvent  = errors.New("short joystick event")
)
