package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the daemon's status API
	NumEvents  int           // Number of analytics events to post
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Flush      bool          // Trigger a batch cycle after posting
	OutputFile string        // Optional file receiving the posted events
	Verbose    bool          // Enable progress logging
}

// Event is the body posted to /analytics/events.
type Event struct {
	Name       string            `json:"name"`
	TS         string            `json:"ts,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Device is the subset of a device snapshot the probe reads.
type Device struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Tick uint64 `json:"tick"`
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

// DaemonStats mirrors the /stats response.
type DaemonStats struct {
	Started       bool    `json:"started"`
	Suspended     bool    `json:"suspended"`
	AppVersion    string  `json:"app_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Input         *struct {
		Running   bool   `json:"running"`
		Suspended bool   `json:"suspended"`
		Devices   int    `json:"devices"`
		Ticks     uint64 `json:"ticks"`
		Scans     uint64 `json:"scans"`
	} `json:"input,omitempty"`
	Analytics *struct {
		State    string `json:"state"`
		Pending  int    `json:"pending"`
		PeriodMs int64  `json:"period_ms"`
		Sent     uint64 `json:"sent"`
		Failures uint64 `json:"failures"`
		Restored int    `json:"restored"`
	} `json:"analytics,omitempty"`
}

type flushResponse struct {
	Sent int `json:"sent"`
}

// Stats holds the outcome of a probe run.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsRejected  int // answered 429 by a full queue
	EventsFailed    int
	FlushSent       int
	Devices         int
	Daemon          *DaemonStats
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
