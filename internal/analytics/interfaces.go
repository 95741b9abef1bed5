package analytics

//go:generate mockgen -destination=mock_analytics.go -package=analytics github.com/okian/showctl/internal/analytics Destination,Store

import (
	"context"

	"github.com/okian/showctl/internal/domain/telemetry"
)

// Destination delivers one batch. It must return promptly once ctx is
// cancelled.
type Destination interface {
	Send(ctx context.Context, events []telemetry.Event) error
}

// Store persists events that were unsent at stop.
type Store interface {
	Load(ctx context.Context) ([]telemetry.Event, error)
	Save(ctx context.Context, events []telemetry.Event) error
	Clear(ctx context.Context) error
}
