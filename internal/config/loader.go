package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Input backends.
const (
	BackendLinux = "linux"
	BackendSim   = "sim"
	BackendNone  = "none"
)

// Analytics stores.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

const envPrefix = "SHOWCTL_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SHOWCTL_CONFIG is set
//  3. env (prefix SHOWCTL_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SHOWCTL_QUEUE_SIZE -> queue_size; keys are flat so underscores are preserved.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.InputBackend != BackendLinux && c.InputBackend != BackendSim && c.InputBackend != BackendNone:
		return fmt.Errorf("%w: unknown input_backend %q", ErrInvalidConfig, c.InputBackend)
	case c.InputPollIntervalMS <= 0:
		return fmt.Errorf("%w: input_poll_interval_ms must be positive", ErrInvalidConfig)
	case c.InputDeadZone < 0 || c.InputDeadZone >= 1:
		return fmt.Errorf("%w: input_dead_zone must be in [0,1)", ErrInvalidConfig)
	case c.AnalyticsStore != StoreFile && c.AnalyticsStore != StoreSQLite:
		return fmt.Errorf("%w: unknown analytics_store %q", ErrInvalidConfig, c.AnalyticsStore)
	case c.AnalyticsBatchSize <= 0:
		return fmt.Errorf("%w: analytics_batch_size must be positive", ErrInvalidConfig)
	case c.AnalyticsInitialPeriodMS <= 0:
		return fmt.Errorf("%w: analytics_initial_period_ms must be positive", ErrInvalidConfig)
	case c.AnalyticsEnabled && strings.TrimSpace(c.AnalyticsTrackingID) == "":
		return fmt.Errorf("%w: analytics_tracking_id must not be empty when analytics is enabled", ErrInvalidConfig)
	}
	return nil
}
