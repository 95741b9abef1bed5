package queue

// Option applies a configuration option to the Deque.
type Option func(*Deque)

// WithCapacity sets the maximum number of pending events.
func WithCapacity(capacity int) Option {
	return func(q *Deque) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithMetrics toggles queue gauges. Disable it when several deques share
// one process, since the gauges are global.
func WithMetrics(enabled bool) Option {
	return func(q *Deque) {
		q.metrics = enabled
	}
}
