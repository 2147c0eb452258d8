package fiber

import (
	"context"
	"sync"
	"time"

	"github.com/fiberlab/fiberlab/internal/model"
)

// Fiber is one lightweight thread. All methods except the observation
// accessors must be called from the fiber's own body function.
type Fiber struct {
	id   uint64
	name string
	pool *CarrierPool
	done chan struct{}

	mu       sync.Mutex
	carrier  int // current carrier, -1 while unmounted
	mounts   int
	history  []int
	pinDepth int
	err      error
}

// ID returns the fiber's runtime-unique id.
func (f *Fiber) ID() uint64 { return f.id }

// Name returns the label given at spawn.
func (f *Fiber) Name() string { return f.name }

// Done is closed when the fiber has finished.
func (f *Fiber) Done() <-chan struct{} { return f.done }

// Err returns the body's error. Valid after Done is closed.
func (f *Fiber) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Carrier returns the carrier the fiber is (or was last) mounted on.
func (f *Fiber) Carrier() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carrier >= 0 {
		return f.carrier
	}
	if len(f.history) > 0 {
		return f.history[len(f.history)-1]
	}
	return -1
}

// Mounts returns how many times the fiber has mounted a carrier.
func (f *Fiber) Mounts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounts
}

// DistinctCarriers returns how many different carriers the fiber has
// run on. A pinned fiber that slept still reports one carrier for the
// pinned span; an unpinned sleeper may migrate.
func (f *Fiber) DistinctCarriers() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[int]struct{}, len(f.history))
	for _, c := range f.history {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Pinned reports whether the fiber currently holds its carrier across
// suspension points.
func (f *Fiber) Pinned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pinDepth > 0
}

// Sleep suspends the fiber for d. An unpinned fiber unmounts for the
// duration and remounts afterwards, possibly on a different carrier; a
// pinned fiber holds its carrier for the whole sleep. Sleep returns
// ctx.Err() if the context is cancelled first; cancellation is only
// observed here, at the blocking checkpoint.
func (f *Fiber) Sleep(ctx context.Context, d time.Duration) error {
	if f.Pinned() {
		start := time.Now()
		err := sleepCtx(ctx, d)
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
	if err := sleepCtx(ctx, d); err != nil {
		// Cancelled while unmounted: do not fight for a carrier, the
		// body is expected to return promptly.
		return err
	}
	return f.mount(ctx)
}

// Yield unmounts the fiber and immediately requeues it, letting other
// runnable fibers onto the carrier first. A pinned fiber cannot yield
// its carrier, so Yield is a no-op while pinned.
func (f *Fiber) Yield(ctx context.Context) error {
	if f.Pinned() {
		return nil
	}
	f.unmount()
	return f.mount(ctx)
}

// Block runs op while unmounted, modelling a blocking call that
// integrates with the scheduler's suspension points (I/O, channel wait).
// A pinned fiber runs op mounted instead.
func (f *Fiber) Block(ctx context.Context, op func(ctx context.Context) error) error {
	if f.Pinned() {
		start := time.Now()
		err := op(ctx)
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
	if err := op(ctx); err != nil {
		return err
	}
	return f.mount(ctx)
}

// mount binds the fiber to a carrier, waiting FIFO when none is free.
func (f *Fiber) mount(ctx context.Context) error {
	c, err := f.pool.acquire(ctx, f)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.carrier = c
	f.mounts++
	f.history = append(f.history, c)
	f.mu.Unlock()

	f.pool.emit(model.Event{Kind: model.EventMount, FiberID: f.id, Carrier: c, At: time.Now()})
	return nil
}

// unmount releases the fiber's carrier back to the pool.
func (f *Fiber) unmount() {
	f.mu.Lock()
	c := f.carrier
	f.carrier = -1
	f.mu.Unlock()

	if c < 0 {
		return
	}
	f.pool.emit(model.Event{Kind: model.EventUnmount, FiberID: f.id, Carrier: c, At: time.Now()})
	f.pool.release(c)
}

func (f *Fiber) mountedNow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carrier >= 0
}

func (f *Fiber) pin() {
	f.mu.Lock()
	f.pinDepth++
	f.mu.Unlock()
}

func (f *Fiber) unpin() {
	f.mu.Lock()
	if f.pinDepth > 0 {
		f.pinDepth--
	}
	f.mu.Unlock()
}

func (f *Fiber) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// sleepCtx is a context-aware time.Sleep.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
