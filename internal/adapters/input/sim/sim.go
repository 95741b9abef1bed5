// Package sim is an in-memory input platform. Devices are attached,
// moved and detached from code, which makes it the backend for tests and
// for running the daemon without hardware.
package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/showctl/internal/devices"
	"github.com/okian/showctl/internal/domain/input"
)

// ErrNotAttached is returned when opening a device that is gone.
var ErrNotAttached = errors.New("device not attached")

// DeviceSpec describes a simulated device.
type DeviceSpec struct {
	ID         input.ID
	Name       string
	Controller bool
	Axes       int
	Buttons    int
	// Min and Max override the native axis range when Max > Min.
	Min, Max int32
}

type device struct {
	spec     DeviceSpec
	attached bool
	axes     []int32
	buttons  []bool
}

// Platform implements devices.Platform.
type Platform struct {
	mu       sync.Mutex
	devices  map[input.ID]*device
	order    []input.ID
	failOpen map[input.ID]error
	enumErr  error
	updates  int
	opened   int
	closed   int
}

var _ devices.Platform = (*Platform)(nil)

// New returns an empty platform.
func New() *Platform {
	return &Platform{
		devices:  make(map[input.ID]*device),
		failOpen: make(map[input.ID]error),
	}
}

// Attach plugs in a device. Attaching an id that is already present
// replaces it with a fresh physical device.
func (p *Platform) Attach(spec DeviceSpec) {
	if spec.Max <= spec.Min {
		spec.Min, spec.Max = input.AxisMin, input.AxisMax
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.devices[spec.ID]; ok {
		old.attached = false
	} else {
		p.order = append(p.order, spec.ID)
	}
	p.devices[spec.ID] = &device{
		spec:     spec,
		attached: true,
		axes:     make([]int32, spec.Axes),
		buttons:  make([]bool, spec.Buttons),
	}
}

// Detach unplugs a device. It reports whether the device was attached.
func (p *Platform) Detach(id input.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.devices[id]
	if !ok {
		return false
	}
	d.attached = false
	delete(p.devices, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// SetAxis sets a raw axis value.
func (p *Platform) SetAxis(id input.ID, axis int, raw int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.devices[id]; ok && axis >= 0 && axis < len(d.axes) {
		d.axes[axis] = raw
	}
}

// SetButton sets a button state.
func (p *Platform) SetButton(id input.ID, button int, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.devices[id]; ok && button >= 0 && button < len(d.buttons) {
		d.buttons[button] = down
	}
}

// FailOpen makes opening id fail with err until called again with nil.
func (p *Platform) FailOpen(id input.ID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failOpen, id)
		return
	}
	p.failOpen[id] = err
}

// FailEnumerate makes enumeration fail with err until called with nil.
func (p *Platform) FailEnumerate(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enumErr = err
}

// Attached returns the ids currently plugged in.
func (p *Platform) Attached() []input.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]input.ID(nil), p.order...)
}

// OpenHandles returns how many handles are open and not yet closed.
func (p *Platform) OpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened - p.closed
}

// Updates returns how many times Update was called.
func (p *Platform) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}

// Enumerate lists attached devices; slots are positions in attach order.
func (p *Platform) Enumerate(ctx context.Context) ([]devices.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enumErr != nil {
		return nil, p.enumErr
	}
	out := make([]devices.Descriptor, 0, len(p.order))
	for slot, id := range p.order {
		d := p.devices[id]
		out = append(out, devices.Descriptor{
			ID:         id,
			Name:       d.spec.Name,
			Controller: d.spec.Controller,
			Slot:       slot,
		})
	}
	return out, nil
}

// Open returns a handle bound to the device currently attached under d.ID.
func (p *Platform) Open(_ context.Context, d devices.Descriptor) (devices.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOpen[d.ID]; err != nil {
		return nil, err
	}
	dev, ok := p.devices[d.ID]
	if !ok || !dev.attached {
		return nil, ErrNotAttached
	}
	p.opened++
	return &handle{p: p, d: dev}, nil
}

// Update counts pump calls; simulated state is always current.
func (p *Platform) Update() error {
	p.mu.Lock()
	p.updates++
	p.mu.Unlock()
	return nil
}

type handle struct {
	p      *Platform
	d      *device
	closed bool
}

func (h *handle) Attached() bool {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return h.d.attached && !h.closed
}

func (h *handle) AxisCount() int   { return h.d.spec.Axes }
func (h *handle) ButtonCount() int { return h.d.spec.Buttons }

func (h *handle) Axis(i int) int32 {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if i < 0 || i >= len(h.d.axes) {
		return 0
	}
	return h.d.axes[i]
}

func (h *handle) Button(i int) bool {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if i < 0 || i >= len(h.d.buttons) {
		return false
	}
	return h.d.buttons[i]
}

func (h *handle) AxisRange() (lo, hi int32) {
	return h.d.spec.Min, h.d.spec.Max
}

func (h *handle) Close() error {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.p.closed++
	}
	return nil
}
