package devices

import (
	"context"

	"github.com/okian/showctl/internal/domain/input"
)

// Descriptor is what enumeration reports about one physical device.
type Descriptor struct {
	// ID must stay the same for a device across scans. Slot must not be
	// used for identity; platforms reuse slots after a disconnect.
	ID         input.ID
	Name       string
	Controller bool
	Slot       int
}

// Handle is an opened device. Only the poll loop reads from it; Close may
// be called from the goroutine that drops the last reference.
type Handle interface {
	Attached() bool
	AxisCount() int
	ButtonCount() int
	Axis(i int) int32
	Button(i int) bool
	AxisRange() (lo, hi int32)
	Close() error
}

// Platform abstracts the OS input subsystem.
type Platform interface {
	Enumerate(ctx context.Context) ([]Descriptor, error)
	Open(ctx context.Context, d Descriptor) (Handle, error)
	// Update pumps pending platform events into opened handles.
	Update() error
}
