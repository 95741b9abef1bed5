package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrAnalyticsDisabled = errors.New("analytics disabled")
	ErrInputDisabled     = errors.New("input monitoring disabled")
)
