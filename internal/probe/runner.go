package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/showctl/pkg/logger"
)

// Run executes a complete probe against a running daemon.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}
	log := logger.Get()

	log.Info(ctx, "starting showctl probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("flush", config.Flush))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check daemon health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("health check failed: %w", err)
	}

	// Step 2: List devices
	devices, err := listDevices(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("device listing failed: %w", err)
	}
	stats.Devices = len(devices)

	// Step 3: Generate and submit events
	if config.NumEvents > 0 {
		_, events := generateEvents(ctx, config.NumEvents, stats)
		submitEvents(ctx, client, config, events, stats)

		if config.OutputFile != "" {
			if err := saveEventsToFile(ctx, config.OutputFile, events); err != nil {
				log.Warn(ctx, "failed to save events to file", logger.Error(err))
			}
		}
	}

	// Step 4: Trigger a batch cycle
	if config.Flush {
		sent, err := flushAnalytics(ctx, client, config)
		if err != nil {
			log.Warn(ctx, "flush did not deliver", logger.Error(err))
		}
		stats.FlushSent = sent
	}

	// Step 5: Read the daemon summary
	var daemon DaemonStats
	if err := client.getJSON(ctx, config.BaseURL+"/stats", &daemon); err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.Daemon = &daemon

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	// Step 6: Verify results
	if err := verifyResults(ctx, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	displayFinalStats(ctx, stats)
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the daemon is serving.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking daemon health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts; the body is Prometheus text.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}

	logger.Get().Info(ctx, "daemon is healthy")
	return nil
}

func listDevices(ctx context.Context, client *HTTPClient, config *Config) ([]Device, error) {
	var list deviceList
	if err := client.getJSON(ctx, config.BaseURL+"/devices", &list); err != nil {
		return nil, err
	}
	for _, d := range list.Devices {
		logger.Get().Info(ctx, "device",
			logger.String("id", d.ID),
			logger.String("kind", d.Kind),
			logger.String("name", d.Name),
			logger.Uint64("tick", d.Tick))
	}
	return list.Devices, nil
}

// flushAnalytics asks the daemon to run one batch cycle now.
func flushAnalytics(ctx context.Context, client *HTTPClient, config *Config) (int, error) {
	resp, err := client.Post(ctx, config.BaseURL+"/analytics/flush", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var out flushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return 0, fmt.Errorf("decode flush response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out.Sent, fmt.Errorf("%w: flush answered %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	logger.Get().Info(ctx, "flush completed", logger.Int("sent", out.Sent))
	return out.Sent, nil
}

// verifyResults cross-checks what the probe saw against the daemon summary.
func verifyResults(ctx context.Context, stats *Stats) error {
	log := logger.Get()
	daemon := stats.Daemon

	if !daemon.Started {
		return fmt.Errorf("%w: daemon reports not started", ErrInconsistent)
	}
	if stats.EventsAccepted > 0 && daemon.Analytics == nil {
		return fmt.Errorf("%w: events accepted but analytics disabled", ErrInconsistent)
	}
	if stats.EventsSubmitted > 0 && stats.EventsFailed == stats.EventsSubmitted {
		return fmt.Errorf("%w: all %d events failed", ErrUnexpectedStatus, stats.EventsSubmitted)
	}

	// Devices may come and go between the two reads.
	if daemon.Input != nil && daemon.Input.Devices != stats.Devices {
		log.Warn(ctx, "device count changed during probe",
			logger.Int("listed", stats.Devices),
			logger.Int("reported", daemon.Input.Devices))
	}
	return nil
}

// saveEventsToFile writes the posted events as a JSON array.
func saveEventsToFile(ctx context.Context, filename string, events []Event) error {
	if len(events) == 0 {
		return errors.New("no events to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), fileMode); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		acceptRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	fields := []logger.Field{
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("flushSent", stats.FlushSent),
		logger.Int("devices", stats.Devices),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	}
	if a := stats.Daemon.Analytics; a != nil {
		fields = append(fields,
			logger.String("batcherState", a.State),
			logger.Int("pending", a.Pending),
			logger.Uint64("sent", a.Sent),
			logger.Uint64("failures", a.Failures))
	}
	logger.Get().Info(ctx, "final statistics", fields...)
}
