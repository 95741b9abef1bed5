// Package analytics buffers telemetry events and delivers them in batches.
//
// A single goroutine runs batch cycles on a timer. Each cycle sends the
// oldest events in batches of at most the max batch size until the queue
// is empty or a send fails. Success resets the period to its initial
// value; failure doubles it up to a cap and leaves the events queued.
// Events still queued at Stop are saved to the store and put back at the
// front of the queue on the next Start.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/okian/showctl/internal/adapters/mq/queue"
	"github.com/okian/showctl/internal/adapters/repository"
	"github.com/okian/showctl/internal/domain/telemetry"
	"github.com/okian/showctl/pkg/logger"
	"github.com/okian/showctl/pkg/metrics"
)

// Default batcher configuration constants.
const (
	defaultMaxBatchSize  = 20
	defaultQueueCapacity = 10000
	defaultInitialPeriod = time.Second
	defaultMaxPeriod     = 5 * time.Minute
	defaultStopGrace     = time.Second
	graceCheckInterval   = 10 * time.Millisecond
)

// State is the batch cycle state.
type State int32

const (
	StateIdle State = iota
	StateFlushScheduled
	StateSending
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFlushScheduled:
		return "flush_scheduled"
	case StateSending:
		return "sending"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats summarizes the batcher for status endpoints.
type Stats struct {
	State    string `json:"state"`
	Pending  int    `json:"pending"`
	PeriodMs int64  `json:"period_ms"`
	Sent     uint64 `json:"sent"`
	Failures uint64 `json:"failures"`
	Restored int    `json:"restored"`
}

// Batcher is the event batching loop.
type Batcher struct {
	dest          Destination
	store         Store
	log           logger.Logger
	maxBatch      int
	queueCapacity int
	queueMetrics  bool
	initialPeriod time.Duration
	maxPeriod     time.Duration
	stopGrace     time.Duration
	userID        string

	queue *queue.Deque

	// cycleMu serializes batch cycles and guards bo.
	cycleMu sync.Mutex
	bo      *backoff.ExponentialBackOff
	period  atomic.Int64

	// netMu gates creation of a network operation on shouldExit.
	netMu      sync.Mutex
	shouldExit bool
	cancelSend context.CancelFunc

	state    atomic.Int32
	sent     atomic.Uint64
	failures atomic.Uint64
	restored atomic.Int64

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	kick      chan struct{}
	shutdown  chan struct{}
	done      chan struct{}
}

// NewBatcher creates a batcher that delivers to dest.
func NewBatcher(dest Destination, opts ...Option) *Batcher {
	b := &Batcher{
		dest:          dest,
		maxBatch:      defaultMaxBatchSize,
		queueCapacity: defaultQueueCapacity,
		queueMetrics:  true,
		initialPeriod: defaultInitialPeriod,
		maxPeriod:     defaultMaxPeriod,
		stopGrace:     defaultStopGrace,
		kick:          make(chan struct{}, 1),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("analytics")
	}
	if b.maxPeriod < b.initialPeriod {
		b.maxPeriod = b.initialPeriod
	}
	b.queue = queue.NewDeque(
		queue.WithCapacity(b.queueCapacity),
		queue.WithMetrics(b.queueMetrics),
	)
	b.bo = &backoff.ExponentialBackOff{
		InitialInterval:     b.initialPeriod,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         b.maxPeriod,
	}
	b.resetPeriod()
	return b
}

// Log enqueues an event without blocking. After Stop begins it is a no-op
// that returns ErrStopping.
func (b *Batcher) Log(ev telemetry.Event) error { //nolint:gocritic // hugeParam: events are copied into the queue
	if b.stopping() {
		return ErrStopping
	}
	if !ev.Valid() {
		metrics.RecordAnalyticsRejected("invalid")
		return ErrInvalidEvent
	}

	ev = ev.Clone()
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	if ev.UserID == "" {
		ev.UserID = b.userID
	}
	ev.EventID = uuid.NewString()

	switch err := b.queue.PushBack(ev); {
	case err == nil:
		metrics.RecordAnalyticsLogged()
		return nil
	case errors.Is(err, queue.ErrClosed):
		return ErrStopping
	default:
		metrics.RecordAnalyticsRejected("queue_full")
		b.log.Warn(context.Background(), "analytics queue full, event dropped",
			logger.String("event", ev.Name),
			logger.Int("capacity", b.queue.Capacity()),
		)
		return ErrQueueFull
	}
}

// Start restores persisted events, resets the period and launches the
// loop. initialPeriod overrides the configured one when positive. Calling
// Start on a running batcher is a no-op; after Stop it returns ErrStopped.
func (b *Batcher) Start(ctx context.Context, initialPeriod time.Duration) error {
	if b.dest == nil {
		return ErrNoDestination
	}
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if b.started {
		return nil
	}

	b.cycleMu.Lock()
	if initialPeriod > 0 {
		b.initialPeriod = initialPeriod
		b.bo.InitialInterval = initialPeriod
		if b.bo.MaxInterval < initialPeriod {
			b.bo.MaxInterval = initialPeriod
		}
	}
	b.restore(ctx)
	b.resetPeriod()
	b.cycleMu.Unlock()

	b.started = true
	b.setState(StateIdle)
	go b.run(context.WithoutCancel(ctx))

	b.log.Info(ctx, "analytics batcher started",
		logger.Duration("period", b.Period()),
		logger.Int("max_batch", b.maxBatch),
		logger.Int("pending", b.queue.Len()),
	)
	return nil
}

// restore moves persisted events to the front of the queue and deletes
// the record. A corrupt record counts as empty and is deleted; any other
// load error leaves it in place for the next start. Must be called with
// cycleMu held.
func (b *Batcher) restore(ctx context.Context) {
	if b.store == nil {
		return
	}
	events, err := b.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrCorruptStore):
		b.log.Warn(ctx, "persisted analytics events corrupt, starting empty", logger.Error(err))
		events = nil
	case err != nil:
		b.log.Error(ctx, "loading persisted analytics events failed, keeping the record", logger.Error(err))
		return
	}
	for i := range events {
		events[i].EventID = uuid.NewString()
	}
	if err := b.queue.PushFront(events); err != nil {
		b.log.Error(ctx, "restoring analytics events failed", logger.Error(err))
		return
	}
	if err := b.store.Clear(ctx); err != nil {
		b.log.Error(ctx, "clearing persisted analytics events failed", logger.Error(err))
	}
	if n := len(events); n > 0 {
		b.restored.Add(int64(n))
		metrics.RecordAnalyticsRestored(n)
		b.log.Info(ctx, "restored unsent analytics events", logger.Int("count", n))
	}
}

func (b *Batcher) run(ctx context.Context) {
	defer close(b.done)

	timer := time.NewTimer(b.Period())
	defer timer.Stop()

	for {
		select {
		case <-b.shutdown:
			return
		case <-b.kick:
		case <-timer.C:
		}

		b.setState(StateFlushScheduled)
		_, _ = b.cycle(ctx)
		timer.Reset(b.Period())
	}
}

// Flush runs one batch cycle now, serialized with the timer-driven ones.
// It returns how many events were delivered.
func (b *Batcher) Flush(ctx context.Context) (int, error) {
	if b.stopping() {
		return 0, ErrStopped
	}
	return b.cycle(ctx)
}

// cycle sends batches until the queue is empty or one fails. It leaves
// the state idle.
func (b *Batcher) cycle(ctx context.Context) (int, error) {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()
	defer b.setState(StateIdle)

	sent := 0
	for {
		batch := b.queue.Peek(b.maxBatch)
		if len(batch) == 0 {
			return sent, nil
		}

		b.setState(StateSending)
		if err := b.send(ctx, batch); err != nil {
			if b.exiting() {
				return sent, ErrStopping
			}
			b.failures.Add(1)
			period := b.bo.NextBackOff()
			b.setPeriod(period)
			b.log.Warn(ctx, "analytics batch failed, backing off",
				logger.Int("events", len(batch)),
				logger.Duration("next_period", period),
				logger.Error(err),
			)
			return sent, err
		}

		b.queue.Discard(len(batch))
		b.sent.Add(uint64(len(batch)))
		sent += len(batch)
		b.resetPeriod()
	}
}

// send wraps one Destination call so Stop can cancel it. No call is made
// once shouldExit is set.
func (b *Batcher) send(ctx context.Context, batch []telemetry.Event) error {
	b.netMu.Lock()
	if b.shouldExit {
		b.netMu.Unlock()
		return ErrStopping
	}
	sctx, cancel := context.WithCancel(ctx)
	b.cancelSend = cancel
	b.netMu.Unlock()

	defer func() {
		b.netMu.Lock()
		b.cancelSend = nil
		b.netMu.Unlock()
		cancel()
	}()

	start := time.Now()
	err := b.dest.Send(sctx, batch)
	metrics.RecordAnalyticsBatch(err == nil, len(batch), float64(time.Since(start).Milliseconds()))
	return err
}

// Stop persists unsent events and waits up to timeout for the loop. If
// events are pending it first gives one last flush up to the stop grace;
// that attempt is best effort. A persistence failure is logged and
// returned but Stop still completes.
//
// On ErrStopTimeout the abandoned send's batch is persisted with the rest.
// A Destination that ignores cancellation and then succeeds has delivered
// that batch, so it is replayed on the next Start: delivery across a
// timed-out Stop is at least once.
func (b *Batcher) Stop(timeout time.Duration) error {
	b.lifecycle.Lock()
	if b.stopped {
		b.lifecycle.Unlock()
		return nil
	}
	b.stopped = true
	started := b.started
	b.lifecycle.Unlock()

	ctx := context.Background()
	deadline := time.Now().Add(timeout)

	if started && b.stopGrace > 0 && b.queue.Len() > 0 {
		b.waitGrace(min(b.stopGrace, timeout))
	}

	b.setState(StateStopping)
	b.netMu.Lock()
	b.shouldExit = true
	if b.cancelSend != nil {
		b.cancelSend()
	}
	b.netMu.Unlock()
	_ = b.queue.Close()

	var stopErr error
	if started {
		close(b.shutdown)
		timer := time.NewTimer(max(time.Until(deadline), 0))
		select {
		case <-b.done:
		case <-timer.C:
			stopErr = ErrStopTimeout
			b.log.Warn(ctx, "analytics loop did not exit in time; persisting anyway",
				logger.Duration("timeout", timeout),
			)
		}
		timer.Stop()
	}

	if b.cycleMu.TryLock() {
		defer b.cycleMu.Unlock()
	}
	pending := b.queue.DrainAll()
	if err := b.persist(ctx, pending); err != nil {
		stopErr = errors.Join(stopErr, err)
	}

	b.setState(StateStopped)
	b.log.Info(ctx, "analytics batcher stopped",
		logger.Uint64("sent", b.sent.Load()),
		logger.Int("persisted", len(pending)),
	)
	return stopErr
}

// waitGrace nudges the loop to flush and waits until the queue empties or
// d passes.
func (b *Batcher) waitGrace(d time.Duration) {
	select {
	case b.kick <- struct{}{}:
	default:
	}
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(graceCheckInterval)
	defer ticker.Stop()
	for b.queue.Len() > 0 && time.Now().Before(deadline) {
		<-ticker.C
	}
}

func (b *Batcher) persist(ctx context.Context, events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}
	if b.store == nil {
		b.log.Warn(ctx, "no analytics store, dropping unsent events", logger.Int("count", len(events)))
		return nil
	}
	if err := b.store.Save(ctx, events); err != nil {
		b.log.Error(ctx, "persisting unsent analytics events failed",
			logger.Int("count", len(events)),
			logger.Error(err),
		)
		return fmt.Errorf("persist unsent events: %w", err)
	}
	metrics.RecordAnalyticsPersisted(len(events))
	return nil
}

// Period returns the current batch period.
func (b *Batcher) Period() time.Duration {
	return time.Duration(b.period.Load())
}

// State returns the current cycle state.
func (b *Batcher) State() State {
	return State(b.state.Load())
}

// Pending returns the number of queued events.
func (b *Batcher) Pending() int {
	return b.queue.Len()
}

// Stats returns a point-in-time summary.
func (b *Batcher) Stats() Stats {
	return Stats{
		State:    b.State().String(),
		Pending:  b.queue.Len(),
		PeriodMs: b.Period().Milliseconds(),
		Sent:     b.sent.Load(),
		Failures: b.failures.Load(),
		Restored: int(b.restored.Load()),
	}
}

// resetPeriod must be called with cycleMu held or before the loop starts.
func (b *Batcher) resetPeriod() {
	b.bo.Reset()
	b.setPeriod(b.bo.NextBackOff())
}

func (b *Batcher) setPeriod(d time.Duration) {
	b.period.Store(int64(d))
	metrics.UpdateAnalyticsPeriod(d)
}

// setState never moves out of the stopping states.
func (b *Batcher) setState(s State) {
	for {
		cur := State(b.state.Load())
		if cur >= StateStopping && s < cur {
			return
		}
		if b.state.CompareAndSwap(int32(cur), int32(s)) {
			return
		}
	}
}

func (b *Batcher) stopping() bool {
	return b.State() >= StateStopping
}

func (b *Batcher) exiting() bool {
	b.netMu.Lock()
	defer b.netMu.Unlock()
	return b.shouldExit
}
