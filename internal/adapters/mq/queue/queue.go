// Package queue holds analytics events that have been logged but not yet
// delivered.
//
// Events leave from the front in FIFO order. A batch that could not be
// delivered goes back to the front so ordering survives retries.
package queue

import (
	"sync"

	"github.com/okian/showctl/internal/domain/telemetry"
	"github.com/okian/showctl/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Event is the payload type held by the queue.
type Event = telemetry.Event

// Queue is the contract the batcher relies on.
type Queue interface {
	// PushBack appends one event. It fails with ErrFull or ErrClosed.
	PushBack(e Event) error
	// PushFront puts events back at the head in their original order.
	// Capacity is not enforced so a failed batch is never lost.
	PushFront(events []Event) error
	// Peek copies up to n events from the head without removing them.
	Peek(n int) []Event
	// Discard removes up to n events from the head.
	Discard(n int) int
	// DrainAll removes and returns every event, even after Close.
	DrainAll() []Event
	Len() int
	Close() error
	IsClosed() bool
}

// Deque implements Queue with a slice guarded by a mutex.
type Deque struct {
	mu       sync.Mutex
	items    []Event
	capacity int
	metrics  bool
	closed   bool
}

var _ Queue = (*Deque)(nil)

// NewDeque creates a new deque with configuration options.
func NewDeque(opts ...Option) *Deque {
	q := &Deque{
		capacity: defaultQueueCapacity,
		metrics:  true,
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.metrics {
		metrics.UpdateQueueCapacity(q.capacity)
		metrics.UpdateQueueSize(0)
		metrics.UpdateQueueUtilization(0.0)
	}

	return q
}

// PushBack appends an event to the tail.
func (q *Deque) PushBack(e Event) error { //nolint:gocritic // hugeParam: events are copied into the queue
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if len(q.items) >= q.capacity {
		return ErrFull
	}
	q.items = append(q.items, e)
	q.report()
	return nil
}

// PushFront restores events to the head, keeping their order.
func (q *Deque) PushFront(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	items := make([]Event, 0, len(events)+len(q.items))
	items = append(items, events...)
	q.items = append(items, q.items...)
	q.report()
	return nil
}

// Peek returns a copy of the first n events.
func (q *Deque) Peek(n int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	n = min(n, len(q.items))
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	copy(out, q.items[:n])
	return out
}

// Discard drops the first n events and returns how many were removed.
func (q *Deque) Discard(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n = min(n, len(q.items))
	if n <= 0 {
		return 0
	}
	clear(q.items[:n])
	q.items = q.items[n:]
	q.report()
	return n
}

// DrainAll empties the queue.
func (q *Deque) DrainAll() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	q.report()
	return out
}

// Len returns the current number of queued events.
func (q *Deque) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured maximum.
func (q *Deque) Capacity() int {
	return q.capacity
}

// Close rejects further pushes. Queued events stay available to DrainAll.
func (q *Deque) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *Deque) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// report must be called with q.mu held.
func (q *Deque) report() {
	if !q.metrics {
		return
	}
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
