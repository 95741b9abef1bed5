package analytics

import (
	"time"

	"github.com/okian/showctl/pkg/logger"
)

// Option configures a Batcher.
type Option func(*Batcher)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Batcher) {
		if l != nil {
			b.log = l
		}
	}
}

// WithStore enables persistence of unsent events.
func WithStore(s Store) Option {
	return func(b *Batcher) {
		b.store = s
	}
}

// WithMaxBatchSize caps the events per POST.
func WithMaxBatchSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxBatch = n
		}
	}
}

// WithQueueCapacity bounds pending events.
func WithQueueCapacity(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.queueCapacity = n
		}
	}
}

// WithInitialPeriod sets the batch period used after a success.
func WithInitialPeriod(d time.Duration) Option {
	return func(b *Batcher) {
		if d > 0 {
			b.initialPeriod = d
		}
	}
}

// WithMaxPeriod caps backoff growth.
func WithMaxPeriod(d time.Duration) Option {
	return func(b *Batcher) {
		if d > 0 {
			b.maxPeriod = d
		}
	}
}

// WithStopGrace sets how long Stop waits for a last flush. Zero disables it.
func WithStopGrace(d time.Duration) Option {
	return func(b *Batcher) {
		if d >= 0 {
			b.stopGrace = d
		}
	}
}

// WithUserID sets the id stamped on events that carry none.
func WithUserID(id string) Option {
	return func(b *Batcher) {
		b.userID = id
	}
}

// WithQueueMetrics toggles the global queue gauges.
func WithQueueMetrics(enabled bool) Option {
	return func(b *Batcher) {
		b.queueMetrics = enabled
	}
}
