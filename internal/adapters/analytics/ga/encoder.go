// Package ga encodes telemetry events as measurement-protocol hits and
// posts them in batches.
package ga

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/showctl/internal/domain/telemetry"
	"github.com/okian/showctl/pkg/logger"
)

// Channel is the build flavour reported with startup events.
type Channel string

const (
	ChannelDebug  Channel = "Debug"
	ChannelBeta   Channel = "Beta"
	ChannelStable Channel = "Stable"
)

// ParseChannel accepts debug, beta or stable in any case.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return ChannelDebug, nil
	case "beta":
		return ChannelBeta, nil
	case "", "stable":
		return ChannelStable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
}

// hit field order on the wire.
var fieldOrder = []string{"ec", "ea", "el", "sc", "av", "cd1", "cd2", "cd3", "cid"}

// Encoder turns events into hit lines.
type Encoder struct {
	trackingID string
	version    string
	channel    Channel
	osName     string
	log        logger.Logger
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithAppVersion sets the version reported by startup events.
func WithAppVersion(v string) EncoderOption {
	return func(e *Encoder) {
		if v != "" {
			e.version = v
		}
	}
}

// WithChannel sets the build channel reported by startup events.
func WithChannel(c Channel) EncoderOption {
	return func(e *Encoder) {
		if c != "" {
			e.channel = c
		}
	}
}

// WithOSName overrides OS detection.
func WithOSName(name string) EncoderOption {
	return func(e *Encoder) {
		if name != "" {
			e.osName = name
		}
	}
}

// WithEncoderLogger sets the logger used for unknown-event warnings.
func WithEncoderLogger(l logger.Logger) EncoderOption {
	return func(e *Encoder) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEncoder creates an encoder for the given tracking id.
func NewEncoder(trackingID string, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		trackingID: trackingID,
		version:    "dev",
		channel:    ChannelStable,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.osName == "" {
		e.osName = OSName(context.Background())
	}
	if e.log == nil {
		e.log = logger.Get().Named("ga")
	}
	return e
}

// fields maps one event onto hit parameters.
func (e *Encoder) fields(ev telemetry.Event) map[string]string {
	f := map[string]string{"ec": "info"}
	switch ev.Name {
	case telemetry.NameStartup:
		f["ea"] = "appStarted"
		f["el"] = e.version + " on " + e.osName
		f["sc"] = "start"
		f["av"] = e.version
		f["cd1"] = e.version
		f["cd2"] = string(e.channel)
		f["cd3"] = e.osName
	case telemetry.NameShutdown:
		f["ea"] = "appStopped"
		f["sc"] = "end"
	case telemetry.NameCrash:
		f["ea"] = "appCrashed"
		f["sc"] = "end"
	default:
		e.log.Warn(context.Background(), "unknown analytics event, sending minimal fields",
			logger.String("event", ev.Name),
		)
		f["ea"] = ev.Name
		f["sc"] = "start"
	}
	f["cid"] = ev.UserID
	return f
}

// Line renders one event.
func (e *Encoder) Line(ev telemetry.Event) string {
	f := e.fields(ev)
	var b strings.Builder
	b.WriteString("v=1&tid=")
	b.WriteString(url.QueryEscape(e.trackingID))
	b.WriteString("&t=event")
	for _, k := range fieldOrder {
		v, ok := f[k]
		if !ok {
			continue
		}
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}

// Payload renders a batch, one line per event.
func (e *Encoder) Payload(events []telemetry.Event) string {
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = e.Line(ev)
	}
	return strings.Join(lines, "\n")
}
