package devices

import (
	"context"
	"time"
)

// Tick runs one loop iteration synchronously.
func Tick(m *Monitor, ctx context.Context, now time.Time) {
	m.tick(ctx, now)
}

// DropAll empties the registry the way a stopping loop does.
func DropAll(m *Monitor) {
	m.dropAll()
}
