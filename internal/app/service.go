// Package service owns the daemon's long-running components and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/showctl/internal/analytics"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/internal/domain/telemetry"
	"github.com/okian/showctl/pkg/logger"
	"github.com/okian/showctl/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultInputStopTimeout     = time.Second
	defaultAnalyticsStopTimeout = 5 * time.Second
)

// Stats is the service summary served by the status API.
type Stats struct {
	Started       bool             `json:"started"`
	Suspended     bool             `json:"suspended"`
	AppVersion    string           `json:"app_version"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Input         *devices.Stats   `json:"input,omitempty"`
	Analytics     *analytics.Stats `json:"analytics,omitempty"`
}

// Service wires the device monitor and the analytics batcher together.
// Both are optional so the daemon can run with either disabled.
type Service struct {
	mu sync.RWMutex

	// Core components
	monitor *devices.Monitor
	batcher *analytics.Batcher

	// Configuration
	appVersion           string
	initialPeriod        time.Duration
	inputStopTimeout     time.Duration
	analyticsStopTimeout time.Duration

	// State
	started   bool
	startedAt time.Time
	resume    func()

	log logger.Logger
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{
		appVersion:           "dev",
		inputStopTimeout:     defaultInputStopTimeout,
		analyticsStopTimeout: defaultAnalyticsStopTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Get().Named("service")
	}
	return s
}

// Start launches the monitor and the batcher, then logs a startup event.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.log.Info(ctx, "starting showctl service...",
		logger.String("version", s.appVersion),
		logger.Bool("input", s.monitor != nil),
		logger.Bool("analytics", s.batcher != nil),
	)

	if s.monitor != nil {
		if err := s.monitor.Start(ctx); err != nil {
			return fmt.Errorf("start device monitor: %w", err)
		}
	}

	if s.batcher != nil {
		if err := s.batcher.Start(ctx, s.initialPeriod); err != nil {
			if s.monitor != nil {
				_ = s.monitor.Stop(s.inputStopTimeout)
			}
			return fmt.Errorf("start analytics batcher: %w", err)
		}
		s.logLifecycle(ctx, telemetry.NameStartup)
	}

	s.started = true
	s.startedAt = time.Now()
	s.log.Info(ctx, "showctl service started")
	return nil
}

// Stop logs a shutdown event, then stops the monitor and the batcher.
// Both are always stopped; their errors are joined.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	ctx := context.Background()
	s.log.Info(ctx, "stopping showctl service...")

	var errs []error
	if s.monitor != nil {
		if err := s.monitor.Stop(s.inputStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("stop device monitor: %w", err))
		}
	}
	if s.batcher != nil {
		s.logLifecycle(ctx, telemetry.NameShutdown)
		if err := s.batcher.Stop(s.analyticsStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("stop analytics batcher: %w", err))
		}
	}

	s.started = false
	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn(ctx, "showctl service stopped with errors", logger.Error(err))
		return err
	}
	s.log.Info(ctx, "showctl service stopped")
	return nil
}

func (s *Service) logLifecycle(ctx context.Context, name string) {
	ev := telemetry.New(name, map[string]string{"app_version": s.appVersion})
	if err := s.batcher.Log(ev); err != nil {
		s.log.Warn(ctx, "lifecycle event not queued",
			logger.String("event", name),
			logger.Error(err),
		)
	}
}

// Running reports whether Start has succeeded and Stop has not run.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// LogEvent queues an analytics event.
func (s *Service) LogEvent(ctx context.Context, ev telemetry.Event) error { //nolint:gocritic // hugeParam: copied into the queue anyway
	if s.batcher == nil {
		return ErrAnalyticsDisabled
	}
	if err := s.batcher.Log(ev); err != nil {
		s.log.Debug(ctx, "analytics event rejected",
			logger.String("event", ev.Name),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// FlushAnalytics runs one batch cycle now and returns the number of events sent.
func (s *Service) FlushAnalytics(ctx context.Context) (int, error) {
	if s.batcher == nil {
		return 0, ErrAnalyticsDisabled
	}
	return s.batcher.Flush(ctx)
}

// Devices returns snapshots of every registered device in discovery order.
func (s *Service) Devices() []input.Snapshot {
	if s.monitor == nil {
		return []input.Snapshot{}
	}
	return s.monitor.ListDevices()
}

// Device looks a device up by stable id, falling back to its name.
func (s *Service) Device(id string) (input.Snapshot, error) {
	if s.monitor == nil {
		return input.Snapshot{}, ErrInputDisabled
	}
	snap, ok := s.monitor.Resolve(input.ID(id), id)
	if !ok {
		return input.Snapshot{}, devices.ErrDeviceNotFound
	}
	return snap, nil
}

// Suspend holds the readiness gate so the poll loop stops touching
// devices. It reports false when already suspended.
func (s *Service) Suspend(ctx context.Context) (bool, error) {
	if s.monitor == nil {
		return false, ErrInputDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume != nil {
		return false, nil
	}
	s.resume = s.monitor.Gate().Hold()
	s.log.Info(ctx, "input suspended")
	return true, nil
}

// Resume releases the hold taken by Suspend. It reports false when not suspended.
func (s *Service) Resume(ctx context.Context) (bool, error) {
	if s.monitor == nil {
		return false, ErrInputDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume == nil {
		return false, nil
	}
	s.resume()
	s.resume = nil
	s.log.Info(ctx, "input resumed")
	return true, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:    s.started,
		Suspended:  s.resume != nil,
		AppVersion: s.appVersion,
	}
	if s.started {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	if s.monitor != nil {
		in := s.monitor.Stats()
		st.Input = &in
		metrics.UpdateDevicesConnected(in.Devices)
	}
	if s.batcher != nil {
		an := s.batcher.Stats()
		st.Analytics = &an
		metrics.UpdateQueueSize(an.Pending)
	}

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return st
}
