package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/showctl/internal/adapters/http/api"
	"github.com/okian/showctl/internal/adapters/http/swagger"
	app "github.com/okian/showctl/internal/app"
	"github.com/okian/showctl/internal/config"
	"github.com/okian/showctl/internal/domain/telemetry"
	"github.com/okian/showctl/pkg/logger"
	"github.com/okian/showctl/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Initialize logging with defaults; the configured format is applied
	// once the config is loaded.
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "showctl exited with error", logger.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run loads the config, starts every component and blocks until ctx ends.
func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := configureLogger(ctx, cfg); err != nil {
		return err
	}
	log := logger.Get()

	svc, cleanup, err := newService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire service: %w", err)
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Warn(context.Background(), "service stop reported errors", logger.Error(err))
		}
	}()
	defer reportCrash(svc, log)

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// configureLogger applies log_format and log_level. An invalid level falls
// back to info with a warning.
func configureLogger(ctx context.Context, cfg *config.Config) error {
	if cfg.LogFormat != string(logger.FormatText) {
		if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel),
			logger.Error(err),
		)
		_ = logger.SetLevelString("info")
	}
	return nil
}

// reportCrash queues a crash event when the daemon panics, stops the
// service so the event is delivered or persisted, then re-panics.
func reportCrash(svc *app.Service, log logger.Logger) {
	r := recover()
	if r == nil {
		return
	}
	ctx := context.Background()
	log.Error(ctx, "showctl panicked", logger.Any("panic", r))
	if err := svc.LogEvent(ctx, telemetry.New(telemetry.NameCrash, map[string]string{
		"panic": fmt.Sprint(r),
	})); err != nil && !errors.Is(err, app.ErrAnalyticsDisabled) {
		log.Warn(ctx, "crash event not queued", logger.Error(err))
	}
	if err := svc.Stop(); err != nil {
		log.Warn(ctx, "service stop after panic reported errors", logger.Error(err))
	}
	panic(r)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
