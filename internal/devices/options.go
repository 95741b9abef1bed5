package devices

import (
	"time"

	"github.com/okian/showctl/pkg/logger"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPollInterval sets how often device state is read.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithScanInterval sets how often the platform is enumerated.
func WithScanInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.scanInterval = d
		}
	}
}

// WithDeadZone zeroes axis values whose magnitude is below dz.
func WithDeadZone(dz float64) Option {
	return func(m *Monitor) {
		if dz >= 0 && dz < 1 {
			m.deadZone = dz
		}
	}
}

// WithNotifyBuffer sets the channel size handed out by Watch.
func WithNotifyBuffer(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.notifyBuffer = n
		}
	}
}

// WithGate shares a readiness gate with the host.
func WithGate(g *Gate) Option {
	return func(m *Monitor) {
		if g != nil {
			m.gate = g
		}
	}
}
