package ga

import (
	"context"

	"github.com/okian/showctl/internal/domain/telemetry"
)

// DefaultEndpoint is the measurement protocol batch URL.
const DefaultEndpoint = "https://www.google-analytics.com/batch"

// Destination sends batches to a measurement protocol endpoint.
type Destination struct {
	encoder   *Encoder
	transport Transport
	endpoint  string
}

// NewDestination binds an encoder and transport to endpoint.
func NewDestination(encoder *Encoder, transport Transport, endpoint string) *Destination {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Destination{encoder: encoder, transport: transport, endpoint: endpoint}
}

// Send posts one batch as a single payload.
func (d *Destination) Send(ctx context.Context, events []telemetry.Event) error {
	if len(events) == 0 {
		return ErrEmptyBatch
	}
	return d.transport.Post(ctx, d.endpoint, d.encoder.Payload(events))
}
