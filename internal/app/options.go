package service

import (
	"time"

	"github.com/okian/showctl/internal/analytics"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMonitor sets the device monitor. Without one the service runs with
// input monitoring disabled.
func WithMonitor(m *devices.Monitor) Option {
	return func(s *Service) {
		s.monitor = m
	}
}

// WithBatcher sets the analytics batcher. Without one events are rejected
// with ErrAnalyticsDisabled.
func WithBatcher(b *analytics.Batcher) Option {
	return func(s *Service) {
		s.batcher = b
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAppVersion sets the version reported in startup events and stats.
func WithAppVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.appVersion = v
		}
	}
}

// WithInitialPeriod overrides the batcher's initial period at Start.
func WithInitialPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.initialPeriod = d
		}
	}
}

// WithStopTimeouts bounds how long Stop waits for the monitor and the batcher.
func WithStopTimeouts(input, analytics time.Duration) Option {
	return func(s *Service) {
		if input > 0 {
			s.inputStopTimeout = input
		}
		if analytics > 0 {
			s.analyticsStopTimeout = analytics
		}
	}
}
