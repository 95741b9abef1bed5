package devices

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/pkg/logger"
)

// entry is one registry slot. The registry holds one reference and every
// Lease holds another; the handle is closed when the count reaches zero.
type entry struct {
	desc     Descriptor
	kind     input.Kind
	handle   Handle
	axes     int
	buttons  int
	log      logger.Logger
	refs     atomic.Int32
	detached atomic.Bool
	latest   atomic.Pointer[input.Snapshot]
}

func newEntry(d Descriptor, kind input.Kind, h Handle, log logger.Logger) *entry {
	e := &entry{
		desc:    d,
		kind:    kind,
		handle:  h,
		axes:    max(h.AxisCount(), 0),
		buttons: max(h.ButtonCount(), 0),
		log:     log,
	}
	e.refs.Store(1)
	return e
}

func (e *entry) snapshot() input.Snapshot {
	if p := e.latest.Load(); p != nil {
		return p.Clone()
	}
	return input.Snapshot{ID: e.desc.ID, Kind: e.kind, Name: e.desc.Name}
}

func (e *entry) release() {
	if e.refs.Add(-1) != 0 {
		return
	}
	if err := e.handle.Close(); err != nil {
		e.log.Warn(context.Background(), "closing device handle failed",
			logger.String("device", string(e.desc.ID)),
			logger.Error(err),
		)
	}
}

// Lease pins a device so its handle stays open after it is removed from
// the registry.
type Lease struct {
	e    *entry
	once sync.Once
}

// Acquire pins the device with the given id.
func (m *Monitor) Acquire(id input.ID) (*Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	e.refs.Add(1)
	return &Lease{e: e}, nil
}

// ID returns the pinned device id.
func (l *Lease) ID() input.ID { return l.e.desc.ID }

// Snapshot returns the latest state seen by the poll loop.
func (l *Lease) Snapshot() input.Snapshot { return l.e.snapshot() }

// Detached reports whether the device has left the registry.
func (l *Lease) Detached() bool { return l.e.detached.Load() }

// Release drops the pin. Extra calls are ignored.
func (l *Lease) Release() {
	l.once.Do(l.e.release)
}
