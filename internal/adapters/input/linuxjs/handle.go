package linuxjs

import (
	"sync"
	"sync/atomic"
)

// handle is one opened jsN node. The poll goroutine calls drain through
// Platform.Update and reads state through the accessors.
type handle struct {
	p        *Platform
	path     string
	fd       int
	mu       sync.Mutex
	st       state
	attached atomic.Bool
	closed   bool
}

func (h *handle) Attached() bool   { return h.attached.Load() }
func (h *handle) AxisCount() int   { return len(h.st.axes) }
func (h *handle) ButtonCount() int { return len(h.st.buttons) }

func (h *handle) Axis(i int) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.st.axes) {
		return 0
	}
	return h.st.axes[i]
}

func (h *handle) Button(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.st.buttons) {
		return false
	}
	return h.st.buttons[i]
}

func (h *handle) AxisRange() (lo, hi int32) {
	return -axisLimit, axisLimit
}
