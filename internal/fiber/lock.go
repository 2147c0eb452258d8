package fiber

import (
	"context"
	"sync"
	"time"

	"github.com/fiberlab/fiberlab/internal/model"
)

// Mutex is a scheduler-aware lock. A fiber waiting for it unmounts, so
// the carrier stays available to other runnable fibers, and the holder
// keeps unmounting normally at suspension points inside the critical
// section.
type Mutex struct {
	sem chan struct{}
}

// NewMutex creates an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

// Lock acquires the mutex on behalf of f, unmounting while it waits.
// It returns ctx.Err() if cancelled before acquisition; a cancelled
// waiter never keeps the lock.
func (m *Mutex) Lock(ctx context.Context, f *Fiber) error {
	// Fast path: uncontended, no need to unmount.
	select {
	case m.sem <- struct{}{}:
		return nil
	default:
	}

	if f.Pinned() {
		// A pinned fiber waits mounted, holding its carrier.
		start := time.Now()
		err := m.wait(ctx)
		f.pool.emit(model.Event{
			Kind:    model.EventPinned,
			FiberID: f.id,
			Carrier: f.Carrier(),
			At:      start,
			Span:    time.Since(start),
		})
		return err
	}

	f.unmount()
	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := f.mount(ctx); err != nil {
		// The fiber cannot run the critical section. Hand the lock
		// back so later lockers are not stuck behind a phantom holder.
		<-m.sem
		return err
	}
	return nil
}

func (m *Mutex) wait(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the mutex. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	select {
	case <-m.sem:
	default:
		panic("fiber: unlock of unlocked Mutex")
	}
}

// PinnedMutex is a lock in the style of a native monitor: a fiber
// waiting for it blocks while still mounted, and the holder is pinned:
// it retains its carrier across every suspension point until Unlock.
// This is the primitive every pinning demo contrasts against Mutex.
type PinnedMutex struct {
	mu sync.Mutex
}

// Lock acquires the mutex and pins f to its current carrier.
func (m *PinnedMutex) Lock(f *Fiber) {
	m.mu.Lock()
	f.pin()
}

// Unlock releases the mutex and unpins f.
func (m *PinnedMutex) Unlock(f *Fiber) {
	f.unpin()
	m.mu.Unlock()
}
