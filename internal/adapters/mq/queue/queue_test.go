package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/showctl/internal/domain/telemetry"
)

func ev(name string) Event {
	return telemetry.Event{Name: name, Timestamp: 1}
}

func TestDeque_BasicOperations(t *testing.T) {
	q := NewDeque(WithCapacity(2), WithMetrics(false))

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.PushBack(ev("event1")); err != nil {
		t.Errorf("expected push to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := q.Peek(5)
	if len(got) != 1 || got[0].Name != "event1" {
		t.Errorf("unexpected peek %v", got)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("peek must not remove, length %d", l)
	}

	if n := q.Discard(5); n != 1 {
		t.Errorf("expected 1 discarded, got %d", n)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestDeque_Capacity(t *testing.T) {
	q := NewDeque(WithCapacity(2), WithMetrics(false))

	_ = q.PushBack(ev("event1"))
	_ = q.PushBack(ev("event2"))

	if err := q.PushBack(ev("event3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}

	// Requeued batches are never dropped for capacity.
	if err := q.PushFront([]Event{ev("event0")}); err != nil {
		t.Errorf("expected push front to succeed, got %v", err)
	}
	if l := q.Len(); l != 3 {
		t.Errorf("expected length 3, got %d", l)
	}
}

func TestDeque_PushFrontKeepsOrder(t *testing.T) {
	q := NewDeque(WithMetrics(false))
	for i := range 5 {
		_ = q.PushBack(ev(fmt.Sprintf("e%d", i)))
	}

	batch := q.Peek(3)
	q.Discard(3)
	_ = q.PushBack(ev("e5"))
	if err := q.PushFront(batch); err != nil {
		t.Fatalf("push front: %v", err)
	}

	all := q.DrainAll()
	for i, e := range all {
		if want := fmt.Sprintf("e%d", i); e.Name != want {
			t.Fatalf("position %d: got %s want %s", i, e.Name, want)
		}
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 events, got %d", len(all))
	}
}

func TestDeque_ConcurrentAccess(t *testing.T) {
	q := NewDeque(WithCapacity(1000), WithMetrics(false))
	numGoroutines := 10
	numEvents := 100

	var wg sync.WaitGroup
	for i := range numGoroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range numEvents {
				if err := q.PushBack(ev(fmt.Sprintf("event%d_%d", id, j))); err != nil {
					t.Errorf("push: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(); l != numGoroutines*numEvents {
		t.Errorf("expected %d, got %d", numGoroutines*numEvents, l)
	}
}

func TestDeque_GracefulShutdown(t *testing.T) {
	q := NewDeque(WithCapacity(10), WithMetrics(false))

	_ = q.PushBack(ev("event1"))
	_ = q.PushBack(ev("event2"))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if err := q.PushBack(ev("event3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.PushFront([]Event{ev("event0")}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	if left := q.DrainAll(); len(left) != 2 {
		t.Errorf("expected 2 events to drain after close, got %d", len(left))
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
