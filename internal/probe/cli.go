package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/showctl/pkg/logger"
)

// SetupLogging initializes the logger. When logFile is set, output goes to
// both stdout and the file. Verbose enables debug output.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.Init(logger.WithWriter(w)); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `showctl probe
=============

Exercises a running showctl daemon: checks health, lists devices, posts
analytics events concurrently and reads back the service summary.

Usage:
  probe [options]

Options:
  -url string
        Base URL of the daemon (default "http://localhost:9080")
  -events int
        Number of analytics events to post (default 100)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -flush
        Run one batch cycle after posting
  -output string
        Write the posted events to this JSON file
  -log string
        Also write log output to this file
  -verbose
        Enable progress logging
  -help
        Show this help message

Examples:
  # Check a local daemon without posting events
  probe -events 0

  # Post 1000 events with 16 workers and flush them
  probe -events 1000 -workers 16 -flush
`)
}
