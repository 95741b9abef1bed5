package probe

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	progressInterval        = time.Second
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	fileMode             = 0o600
	directoryPermission  = 0o750
)

// Event names posted by the probe.
const (
	EventName = "probe"
)
