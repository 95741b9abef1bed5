// Package devices discovers input devices, tracks them in a registry keyed
// by stable id and pushes their state to subscribers at a fixed rate.
//
// One goroutine owns the registry. It scans the platform every scan
// interval, polls every device every poll interval and blocks while the
// readiness gate is held. Readers get copies.
package devices

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/pkg/logger"
	"github.com/okian/showctl/pkg/metrics"
)

// Default monitor configuration constants.
const (
	defaultPollInterval = 20 * time.Millisecond
	defaultScanInterval = 1500 * time.Millisecond
	defaultNotifyBuffer = 10
)

// Stats summarizes the monitor for status endpoints.
type Stats struct {
	Running   bool   `json:"running"`
	Suspended bool   `json:"suspended"`
	Devices   int    `json:"devices"`
	Ticks     uint64 `json:"ticks"`
	Scans     uint64 `json:"scans"`
}

// Monitor maintains the device registry.
type Monitor struct {
	platform     Platform
	log          logger.Logger
	gate         *Gate
	subs         *subscribers
	pollInterval time.Duration
	scanInterval time.Duration
	deadZone     float64
	notifyBuffer int

	// registry; written only by the poll goroutine
	mu      sync.RWMutex
	entries map[input.ID]*entry
	order   []input.ID

	// loop state; touched only by the poll goroutine
	lastScan time.Time

	ticks atomic.Uint64
	scans atomic.Uint64

	lifecycle sync.Mutex
	running   bool
	shutdown  chan struct{}
	done      chan struct{}
}

// NewMonitor creates a monitor over platform.
func NewMonitor(platform Platform, opts ...Option) *Monitor {
	m := &Monitor{
		platform:     platform,
		subs:         newSubscribers(),
		pollInterval: defaultPollInterval,
		scanInterval: defaultScanInterval,
		notifyBuffer: defaultNotifyBuffer,
		entries:      make(map[input.ID]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.gate == nil {
		m.gate = NewGate()
	}
	if m.log == nil {
		m.log = logger.Get().Named("devices")
	}
	return m
}

// Gate returns the readiness gate the loop waits on.
func (m *Monitor) Gate() *Gate { return m.gate }

// Start launches the poll loop. Calling it while running is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	if m.platform == nil {
		return ErrNoPlatform
	}
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.done != nil {
		select {
		case <-m.done:
		default:
			if m.running {
				return nil
			}
			return ErrStillStopping
		}
	}

	m.running = true
	m.shutdown = make(chan struct{})
	m.done = make(chan struct{})
	m.lastScan = time.Time{}
	go m.run(ctx, m.shutdown, m.done)

	m.log.Info(ctx, "device monitor started",
		logger.Duration("poll_interval", m.pollInterval),
		logger.Duration("scan_interval", m.scanInterval),
	)
	return nil
}

// Stop signals the loop and waits up to timeout for it to exit. On
// ErrStopTimeout the loop is abandoned: it still exits and releases its
// devices once the current platform call returns, but the caller is no
// longer waiting for it.
func (m *Monitor) Stop(timeout time.Duration) error {
	m.lifecycle.Lock()
	if !m.running {
		m.lifecycle.Unlock()
		return nil
	}
	m.running = false
	close(m.shutdown)
	done := m.done
	m.lifecycle.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		m.log.Info(context.Background(), "device monitor stopped")
		return nil
	case <-timer.C:
		m.log.Warn(context.Background(), "device monitor stop timed out; loop abandoned",
			logger.Duration("timeout", timeout),
		)
		return ErrStopTimeout
	}
}

// Running reports whether the poll loop is live.
func (m *Monitor) Running() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running || m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Monitor) run(ctx context.Context, shutdown, done chan struct{}) {
	defer close(done)
	defer m.dropAll()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		if !m.gate.Ready() {
			metrics.UpdateInputSuspended(true)
			m.log.Debug(ctx, "input suspended")
			select {
			case <-shutdown:
				return
			case <-ctx.Done():
				return
			case <-m.gate.Wait():
			}
			metrics.UpdateInputSuspended(false)
			m.log.Debug(ctx, "input resumed")
		}

		m.tick(ctx, time.Now())

		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one loop iteration: scan when due, pump the platform, poll.
func (m *Monitor) tick(ctx context.Context, now time.Time) {
	if m.lastScan.IsZero() || now.Sub(m.lastScan) >= m.scanInterval {
		m.scan(ctx)
		m.lastScan = now
	}

	if err := m.platform.Update(); err != nil {
		m.log.Debug(ctx, "platform update failed", logger.Error(err))
	}

	m.poll(now)
}

// scan removes detached devices, then adds new ones.
func (m *Monitor) scan(ctx context.Context) {
	m.scans.Add(1)
	metrics.RecordInputScan()

	m.mu.RLock()
	var gone []*entry
	for _, id := range m.order {
		if e := m.entries[id]; !e.handle.Attached() {
			gone = append(gone, e)
		}
	}
	m.mu.RUnlock()
	for _, e := range gone {
		m.remove(ctx, e)
	}

	descs, err := m.platform.Enumerate(ctx)
	if err != nil {
		m.log.Warn(ctx, "device enumeration failed", logger.Error(err))
		return
	}
	for _, d := range descs {
		m.mu.RLock()
		_, known := m.entries[d.ID]
		m.mu.RUnlock()
		if known {
			continue
		}
		m.add(ctx, d)
	}
}

func (m *Monitor) add(ctx context.Context, d Descriptor) {
	h, err := m.platform.Open(ctx, d)
	if err != nil {
		metrics.RecordDeviceOpenError()
		m.log.Warn(ctx, "unable to open device, retrying next scan",
			logger.String("device", string(d.ID)),
			logger.String("name", d.Name),
			logger.Error(err),
		)
		return
	}

	kind := input.KindRawJoystick
	if d.Controller {
		kind = input.KindGameController
	}
	e := newEntry(d, kind, h, m.log)
	snap := m.read(e, time.Now())
	e.latest.Store(&snap)

	m.mu.Lock()
	m.entries[d.ID] = e
	m.order = append(m.order, d.ID)
	count := len(m.entries)
	m.mu.Unlock()

	metrics.RecordDeviceAdded(kind.String())
	metrics.UpdateDevicesConnected(count)
	m.log.Info(ctx, "device added",
		logger.String("device", string(d.ID)),
		logger.String("name", d.Name),
		logger.String("kind", kind.String()),
		logger.Int("axes", e.axes),
		logger.Int("buttons", e.buttons),
	)
	m.emitAdded(snap.Clone())
}

// remove unregisters e, notifies listeners and then drops the registry's
// reference. The handle closes once every lease is released too.
func (m *Monitor) remove(ctx context.Context, e *entry) {
	m.mu.Lock()
	delete(m.entries, e.desc.ID)
	for i, id := range m.order {
		if id == e.desc.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	count := len(m.entries)
	m.mu.Unlock()

	e.detached.Store(true)
	metrics.RecordDeviceRemoved()
	metrics.UpdateDevicesConnected(count)
	m.log.Info(ctx, "device removed",
		logger.String("device", string(e.desc.ID)),
		logger.String("name", e.desc.Name),
	)
	m.emitRemoved(e.snapshot())
	e.release()
}

func (m *Monitor) dropAll() {
	m.mu.RLock()
	all := make([]*entry, 0, len(m.order))
	for _, id := range m.order {
		all = append(all, m.entries[id])
	}
	m.mu.RUnlock()
	for _, e := range all {
		m.remove(context.Background(), e)
	}
}

func (m *Monitor) poll(now time.Time) {
	start := time.Now()
	m.mu.RLock()
	live := make([]*entry, 0, len(m.order))
	for _, id := range m.order {
		live = append(live, m.entries[id])
	}
	m.mu.RUnlock()

	m.ticks.Add(1)
	for _, e := range live {
		snap := m.read(e, now)
		e.latest.Store(&snap)
		m.emitStateChanged(snap.Clone())
	}
	metrics.RecordInputPollLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// read builds a fresh snapshot from the handle.
func (m *Monitor) read(e *entry, now time.Time) input.Snapshot {
	lo, hi := e.handle.AxisRange()
	axes := make([]float64, e.axes)
	for i := range axes {
		axes[i] = input.ApplyDeadZone(input.NormalizeAxis(e.handle.Axis(i), lo, hi), m.deadZone)
	}
	buttons := make([]bool, e.buttons)
	for i := range buttons {
		buttons[i] = e.handle.Button(i)
	}
	return input.Snapshot{
		ID:      e.desc.ID,
		Kind:    e.kind,
		Name:    e.desc.Name,
		Axes:    axes,
		Buttons: buttons,
		Tick:    m.ticks.Load(),
		At:      now,
	}
}

// ListDevices returns the latest snapshot of every device in discovery
// order.
func (m *Monitor) ListDevices() []input.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]input.Snapshot, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id].snapshot())
	}
	return out
}

// FindDevice looks a device up by stable id.
func (m *Monitor) FindDevice(id input.ID) (input.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return input.Snapshot{}, false
	}
	return e.snapshot(), true
}

// FindDeviceByName returns the first device, in discovery order, whose
// name matches.
func (m *Monitor) FindDeviceByName(name string) (input.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if e := m.entries[id]; e.desc.Name == name {
			return e.snapshot(), true
		}
	}
	return input.Snapshot{}, false
}

// Resolve finds a saved binding's device by id, falling back to name.
func (m *Monitor) Resolve(id input.ID, name string) (input.Snapshot, bool) {
	if id != "" {
		if s, ok := m.FindDevice(id); ok {
			return s, true
		}
	}
	if name == "" {
		return input.Snapshot{}, false
	}
	return m.FindDeviceByName(name)
}

// Stats returns a point-in-time summary.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return Stats{
		Running:   m.Running(),
		Suspended: !m.gate.Ready(),
		Devices:   n,
		Ticks:     m.ticks.Load(),
		Scans:     m.scans.Load(),
	}
}
