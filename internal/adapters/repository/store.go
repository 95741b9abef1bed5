// Package repository persists analytics events that were still pending
// when the batcher stopped.
package repository

import (
	"context"

	"github.com/okian/showctl/internal/domain/telemetry"
)

// EventStore holds an ordered record of unsent events.
type EventStore interface {
	// Load returns every persisted event in the order it was saved.
	// A missing record is empty. A record with the wrong structure yields
	// ErrCorruptStore.
	Load(ctx context.Context) ([]telemetry.Event, error)
	// Save appends events to the record, keeping what is already there.
	Save(ctx context.Context, events []telemetry.Event) error
	// Clear removes the record.
	Clear(ctx context.Context) error
}

var (
	_ EventStore = (*FileStore)(nil)
	_ EventStore = (*SQLiteStore)(nil)
)
