package ga

import "errors"

// Sentinel errors for the measurement protocol destination.
var (
	ErrUnexpectedStatus = errors.New("unexpected analytics endpoint status")
	ErrUnknownChannel   = errors.New("unknown build channel")
	ErrEmptyBatch       = errors.New("empty analytics batch")
)
