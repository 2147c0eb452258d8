package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/model"
)

func TestRecorderOnlyCapturesWhileRunning(t *testing.T) {
	t.Parallel()

	r := New(0)
	r.Record(model.Event{Kind: model.EventMount, FiberID: 1, At: time.Now()})
	if r.Len() != 0 {
		t.Fatal("stopped recorder captured an event")
	}

	r.Start()
	r.Record(model.Event{Kind: model.EventMount, FiberID: 1, At: time.Now()})
	r.Stop()
	r.Record(model.Event{Kind: model.EventMount, FiberID: 2, At: time.Now()})

	if got := r.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
}

func TestRecorderEventToggles(t *testing.T) {
	t.Parallel()

	r := New(0)
	r.Start()
	if err := r.SetEnabled("fiber.Mount", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	r.Record(model.Event{Kind: model.EventMount, FiberID: 1, At: time.Now()})
	r.Record(model.Event{Kind: model.EventUnmount, FiberID: 1, At: time.Now()})

	events := r.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want only the unmount", len(events))
	}
	if events[0].Kind != model.EventUnmount {
		t.Errorf("kind = %v, want unmount", events[0].Kind)
	}

	if err := r.SetEnabled("fiber.Bogus", true); err == nil {
		t.Error("SetEnabled accepted an unknown event name")
	}
}

func TestRecorderBoundedCapacity(t *testing.T) {
	t.Parallel()

	r := New(8)
	r.Start()
	for i := 0; i < 20; i++ {
		r.Record(model.Event{Kind: model.EventMount, FiberID: uint64(i), At: time.Now()})
	}

	if got := r.Len(); got > 8 {
		t.Fatalf("Len = %d, exceeds capacity 8", got)
	}
	if r.Dropped() == 0 {
		t.Error("Dropped = 0, want discarded events counted")
	}

	// The newest event always survives.
	events := r.Events()
	if events[len(events)-1].FiberID != 19 {
		t.Errorf("newest surviving event is %d, want 19", events[len(events)-1].FiberID)
	}
}

func TestTrackerRebuildsFiberLifecycles(t *testing.T) {
	t.Parallel()

	r := New(0)
	r.Start()
	pool := fiber.NewCarrierPool(2, r)

	for i := 0; i < 4; i++ {
		pool.Go(context.Background(), "tracked", func(ctx context.Context, f *fiber.Fiber) error {
			if err := f.Sleep(ctx, time.Millisecond); err != nil {
				return err
			}
			var mu fiber.PinnedMutex
			mu.Lock(f)
			defer mu.Unlock(f)
			return f.Sleep(ctx, time.Millisecond)
		})
	}
	pool.Wait()
	r.Stop()

	fibers := TrackAll(r.Events())
	if len(fibers) != 4 {
		t.Fatalf("tracked %d fibers, want 4", len(fibers))
	}
	for id, info := range fibers {
		if info.State != model.StateDone {
			t.Errorf("fiber %d state = %v, want done", id, info.State)
		}
		// Initial mount plus the remount after the unpinned sleep.
		if info.Mounts != 2 {
			t.Errorf("fiber %d mounts = %d, want 2", id, info.Mounts)
		}
		if info.PinnedSpans != 1 {
			t.Errorf("fiber %d pinned spans = %d, want 1", id, info.PinnedSpans)
		}
		if info.PinnedTotal <= 0 {
			t.Errorf("fiber %d pinned total = %v, want > 0", id, info.PinnedTotal)
		}
	}
}
