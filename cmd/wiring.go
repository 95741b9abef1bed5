package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/showctl/internal/adapters/analytics/ga"
	"github.com/okian/showctl/internal/adapters/input/linuxjs"
	"github.com/okian/showctl/internal/adapters/input/sim"
	"github.com/okian/showctl/internal/adapters/repository"
	"github.com/okian/showctl/internal/analytics"
	app "github.com/okian/showctl/internal/app"
	"github.com/okian/showctl/internal/config"
	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/pkg/logger"
)

// Files kept under data_dir.
const (
	installIDFile     = "install_id"
	pendingYAMLFile   = "pending_events.yaml"
	pendingSQLiteFile = "pending_events.db"
	dataDirMode       = 0o700
)

// simDemoDevice is attached when the sim backend runs outside tests so the
// status API has something to show.
var simDemoDevice = sim.DeviceSpec{
	ID:         "sim-gamepad-0",
	Name:       "Simulated Gamepad",
	Controller: true,
	Axes:       4,
	Buttons:    12,
}

// newPlatform returns the input backend named by cfg, or nil for "none".
func newPlatform(cfg *config.Config) (devices.Platform, error) {
	switch cfg.InputBackend {
	case config.BackendLinux:
		return linuxjs.New(
			linuxjs.WithDeviceDir(cfg.InputDeviceDir),
			linuxjs.WithSysfsDir(cfg.InputSysfsDir),
		), nil
	case config.BackendSim:
		p := sim.New()
		p.Attach(simDemoDevice)
		return p, nil
	case config.BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown input_backend %q", config.ErrInvalidConfig, cfg.InputBackend)
	}
}

// newMonitor builds the device monitor, or nil when input is disabled.
func newMonitor(cfg *config.Config, log logger.Logger) (*devices.Monitor, error) {
	platform, err := newPlatform(cfg)
	if err != nil || platform == nil {
		return nil, err
	}
	return devices.NewMonitor(platform,
		devices.WithLogger(log.Named("devices")),
		devices.WithPollInterval(config.Millis(cfg.InputPollIntervalMS)),
		devices.WithScanInterval(config.Millis(cfg.InputScanIntervalMS)),
		devices.WithDeadZone(cfg.InputDeadZone),
		devices.WithNotifyBuffer(cfg.InputNotifyBuffer),
	), nil
}

// openStore opens the unsent-event store named by cfg. The returned closer
// is nil when the store holds no resources.
func openStore(cfg *config.Config) (analytics.Store, io.Closer, error) {
	if err := os.MkdirAll(cfg.DataDir, dataDirMode); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	switch cfg.AnalyticsStore {
	case config.StoreFile:
		s, err := repository.NewFileStore(filepath.Join(cfg.DataDir, pendingYAMLFile))
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreSQLite:
		s, err := repository.OpenSQLite(filepath.Join(cfg.DataDir, pendingSQLiteFile))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown analytics_store %q", config.ErrInvalidConfig, cfg.AnalyticsStore)
	}
}

// newBatcher builds the analytics batcher, or nil when analytics is disabled.
func newBatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*analytics.Batcher, io.Closer, error) {
	if !cfg.AnalyticsEnabled {
		return nil, nil, nil
	}

	channel, err := ga.ParseChannel(cfg.BuildChannel)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	userID, err := repository.InstallID(filepath.Join(cfg.DataDir, installIDFile))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}

	encoder := ga.NewEncoder(cfg.AnalyticsTrackingID,
		ga.WithAppVersion(cfg.AppVersion),
		ga.WithChannel(channel),
		ga.WithOSName(ga.OSName(ctx)),
		ga.WithEncoderLogger(log.Named("ga")),
	)
	dest := ga.NewDestination(encoder,
		ga.NewHTTPTransport(nil, config.Millis(cfg.AnalyticsHTTPTimeoutMS)),
		cfg.AnalyticsEndpoint,
	)

	b := analytics.NewBatcher(dest,
		analytics.WithLogger(log.Named("analytics")),
		analytics.WithStore(store),
		analytics.WithUserID(userID),
		analytics.WithMaxBatchSize(cfg.AnalyticsBatchSize),
		analytics.WithQueueCapacity(cfg.AnalyticsQueueCapacity),
		analytics.WithInitialPeriod(config.Millis(cfg.AnalyticsInitialPeriodMS)),
		analytics.WithMaxPeriod(config.Millis(cfg.AnalyticsMaxPeriodMS)),
		analytics.WithStopGrace(config.Millis(cfg.AnalyticsStopGraceMS)),
	)
	return b, closer, nil
}

// newService wires every component described by cfg. cleanup releases
// resources that outlive the service and must run after Stop.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (svc *app.Service, cleanup func(), err error) {
	monitor, err := newMonitor(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	batcher, closer, err := newBatcher(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup = func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			log.Warn(context.Background(), "closing analytics store failed", logger.Error(err))
		}
	}

	svc = app.New(
		app.WithLogger(log.Named("service")),
		app.WithMonitor(monitor),
		app.WithBatcher(batcher),
		app.WithAppVersion(cfg.AppVersion),
		app.WithInitialPeriod(config.Millis(cfg.AnalyticsInitialPeriodMS)),
		app.WithStopTimeouts(
			config.Millis(cfg.InputStopTimeoutMS),
			config.Millis(cfg.AnalyticsStopTimeoutMS),
		),
	)
	return svc, cleanup, nil
}
