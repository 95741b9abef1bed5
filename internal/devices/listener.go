package devices

import (
	"context"
	"sync"

	"github.com/okian/showctl/internal/domain/input"
	"github.com/okian/showctl/pkg/logger"
	"github.com/okian/showctl/pkg/metrics"
)

// Listener receives device notifications on the poll goroutine. Calls
// must return quickly; a slow listener stalls every device.
type Listener interface {
	DeviceAdded(s input.Snapshot)
	DeviceRemoved(s input.Snapshot)
	DeviceStateChanged(s input.Snapshot)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnAdded        func(input.Snapshot)
	OnRemoved      func(input.Snapshot)
	OnStateChanged func(input.Snapshot)
}

func (f ListenerFuncs) DeviceAdded(s input.Snapshot) {
	if f.OnAdded != nil {
		f.OnAdded(s)
	}
}

func (f ListenerFuncs) DeviceRemoved(s input.Snapshot) {
	if f.OnRemoved != nil {
		f.OnRemoved(s)
	}
}

func (f ListenerFuncs) DeviceStateChanged(s input.Snapshot) {
	if f.OnStateChanged != nil {
		f.OnStateChanged(s)
	}
}

// NotificationType says what happened to a device.
type NotificationType uint8

const (
	DeviceAdded NotificationType = iota + 1
	DeviceRemoved
)

func (t NotificationType) String() string {
	switch t {
	case DeviceAdded:
		return "added"
	case DeviceRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Notification is delivered to Watch channels.
type Notification struct {
	Type   NotificationType
	Device input.Snapshot
}

// subscribers fans notifications out to listeners and watchers.
type subscribers struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]Listener
	watchers  map[uint64]*watcher
}

type watcher struct {
	mu     sync.Mutex
	ch     chan Notification
	closed bool
}

func newSubscribers() *subscribers {
	return &subscribers{
		listeners: make(map[uint64]Listener),
		watchers:  make(map[uint64]*watcher),
	}
}

// Subscribe registers l and returns a func that removes it. A call already
// in flight when unsubscribe returns may still complete.
func (m *Monitor) Subscribe(l Listener) (unsubscribe func()) {
	s := m.subs
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = l
	s.mu.Unlock()

	return sync.OnceFunc(func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	})
}

// Watch returns a buffered channel of add and remove notifications that is
// closed when ctx ends. When the buffer is full new notifications are
// dropped rather than blocking the poll loop.
func (m *Monitor) Watch(ctx context.Context) <-chan Notification {
	s := m.subs
	w := &watcher{ch: make(chan Notification, m.notifyBuffer)}

	s.mu.Lock()
	id := s.next
	s.next++
	s.watchers[id] = w
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()

		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()
	}()
	return w.ch
}

func (s *subscribers) snapshot() ([]Listener, []*watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	ws := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	return ls, ws
}

func (w *watcher) offer(n Notification) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return true
	}
	select {
	case w.ch <- n:
		return true
	default:
		return false
	}
}

func (m *Monitor) emitAdded(snap input.Snapshot) {
	ls, ws := m.subs.snapshot()
	for _, l := range ls {
		m.safeCall(snap, "added", l.DeviceAdded)
	}
	m.notify(ws, Notification{Type: DeviceAdded, Device: snap})
}

func (m *Monitor) emitRemoved(snap input.Snapshot) {
	ls, ws := m.subs.snapshot()
	for _, l := range ls {
		m.safeCall(snap, "removed", l.DeviceRemoved)
	}
	m.notify(ws, Notification{Type: DeviceRemoved, Device: snap})
}

func (m *Monitor) emitStateChanged(snap input.Snapshot) {
	ls, _ := m.subs.snapshot()
	for _, l := range ls {
		m.safeCall(snap, "state", l.DeviceStateChanged)
	}
}

func (m *Monitor) notify(ws []*watcher, n Notification) {
	for _, w := range ws {
		if !w.offer(n) {
			metrics.RecordNotificationDropped()
			m.log.Debug(context.Background(), "watcher full, notification dropped",
				logger.String("device", string(n.Device.ID)),
				logger.String("type", n.Type.String()),
			)
		}
	}
}

// safeCall keeps a panicking listener from killing the poll loop.
func (m *Monitor) safeCall(snap input.Snapshot, what string, fn func(input.Snapshot)) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordListenerPanic()
			m.log.Error(context.Background(), "device listener panicked",
				logger.String("device", string(snap.ID)),
				logger.String("notification", what),
				logger.Any("panic", r),
			)
		}
	}()
	fn(snap)
}
