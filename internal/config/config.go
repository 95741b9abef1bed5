// Package config defines daemon configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and SHOWCTL_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the status API listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir holds the persisted analytics record and the install id.
	DataDir string `koanf:"data_dir"`

	// InputBackend selects the device platform: linux, sim or none.
	InputBackend string `koanf:"input_backend"`

	// InputDeviceDir and InputSysfsDir locate joystick nodes and their sysfs metadata.
	InputDeviceDir string `koanf:"input_device_dir"`
	InputSysfsDir  string `koanf:"input_sysfs_dir"`

	// InputPollIntervalMS is the state poll period; InputScanIntervalMS the enumeration period.
	InputPollIntervalMS int `koanf:"input_poll_interval_ms"`
	InputScanIntervalMS int `koanf:"input_scan_interval_ms"`

	// InputDeadZone zeroes axis values whose magnitude is below it.
	InputDeadZone float64 `koanf:"input_dead_zone"`

	// InputNotifyBuffer bounds each queued device watcher.
	InputNotifyBuffer int `koanf:"input_notify_buffer"`

	InputStopTimeoutMS int `koanf:"input_stop_timeout_ms"`

	// AnalyticsEnabled runs the event batcher.
	AnalyticsEnabled bool `koanf:"analytics_enabled"`

	AnalyticsEndpoint   string `koanf:"analytics_endpoint"`
	AnalyticsTrackingID string `koanf:"analytics_tracking_id"`

	// AnalyticsBatchSize caps the number of events per POST.
	AnalyticsBatchSize int `koanf:"analytics_batch_size"`

	AnalyticsQueueCapacity int `koanf:"analytics_queue_capacity"`

	// AnalyticsInitialPeriodMS is the batch period after a success; failures double it up to AnalyticsMaxPeriodMS.
	AnalyticsInitialPeriodMS int `koanf:"analytics_initial_period_ms"`
	AnalyticsMaxPeriodMS     int `koanf:"analytics_max_period_ms"`

	AnalyticsStopGraceMS   int `koanf:"analytics_stop_grace_ms"`
	AnalyticsStopTimeoutMS int `koanf:"analytics_stop_timeout_ms"`

	// AnalyticsStore selects the unsent-event store: file or sqlite.
	AnalyticsStore string `koanf:"analytics_store"`

	AnalyticsHTTPTimeoutMS int `koanf:"analytics_http_timeout_ms"`

	// AppVersion and BuildChannel enrich startup events.
	AppVersion   string `koanf:"app_version"`
	BuildChannel string `koanf:"build_channel"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DataDir:                  defaultDataDir(),
		InputBackend:             defaultInputBackend(),
		InputDeviceDir:           "/dev/input",
		InputSysfsDir:            "/sys/class/input",
		InputPollIntervalMS:      20,
		InputScanIntervalMS:      1500,
		InputDeadZone:            0,
		InputNotifyBuffer:        10,
		InputStopTimeoutMS:       1000,
		AnalyticsEnabled:         false,
		AnalyticsEndpoint:        "https://www.google-analytics.com/batch",
		AnalyticsBatchSize:       20,
		AnalyticsQueueCapacity:   10_000,
		AnalyticsInitialPeriodMS: 1000,
		AnalyticsMaxPeriodMS:     300_000,
		AnalyticsStopGraceMS:     1000,
		AnalyticsStopTimeoutMS:   5000,
		AnalyticsStore:           "file",
		AnalyticsHTTPTimeoutMS:   10_000,
		AppVersion:               "dev",
		BuildChannel:             "stable",
	}
}

// Millis converts a millisecond config value to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "showctl")
	}
	return filepath.Join(dir, "showctl")
}

func defaultInputBackend() string {
	if runtime.GOOS == "linux" {
		return BackendLinux
	}
	return BackendNone
}
