// Package fiber implements a small cooperative M:N runtime: many fibers
// (lightweight threads) multiplexed over a fixed pool of carrier slots.
// A fiber runs only while mounted on a carrier; blocking operations
// unmount it so the carrier can serve other runnable fibers, unless the
// fiber is pinned (see PinnedMutex).
package fiber

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/fiberlab/fiberlab/internal/model"
)

// EventSink receives runtime events. A nil sink disables emission; the
// runtime never depends on the sink for correctness.
type EventSink interface {
	Record(ev model.Event)
}

// mountRequest is one fiber waiting in the run queue for a carrier.
type mountRequest struct {
	grant     chan int
	abandoned bool
}

// CarrierPool schedules fibers over a fixed number of carrier slots.
// Waiters mount in FIFO order.
type CarrierPool struct {
	mu   sync.Mutex
	free []int        // carrier ids currently unassigned
	runq *queue.Queue // *mountRequest, FIFO

	mounted     int
	peakMounted int

	carrierMounts []int
	carrierFibers []map[uint64]struct{}

	sink   EventSink
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// NewCarrierPool creates a pool with n carrier slots. n must be >= 1.
func NewCarrierPool(n int, sink EventSink) *CarrierPool {
	if n < 1 {
		n = 1
	}

	p := &CarrierPool{
		free:          make([]int, 0, n),
		runq:          queue.New(),
		carrierMounts: make([]int, n),
		carrierFibers: make([]map[uint64]struct{}, n),
		sink:          sink,
	}
	for i := 0; i < n; i++ {
		p.free = append(p.free, i)
		p.carrierFibers[i] = make(map[uint64]struct{})
	}
	return p
}

// NumCarriers returns the pool size.
func (p *CarrierPool) NumCarriers() int {
	return len(p.carrierMounts)
}

// Go spawns a fiber running fn. The fiber mounts before fn runs and
// unmounts when fn returns; fn must treat ctx cancellation as a request
// to stop at its next blocking point.
func (p *CarrierPool) Go(ctx context.Context, name string, fn func(ctx context.Context, f *Fiber) error) *Fiber {
	f := &Fiber{
		id:      p.nextID.Add(1),
		name:    name,
		pool:    p,
		carrier: -1,
		done:    make(chan struct{}),
	}

	p.emit(model.Event{Kind: model.EventFiberStart, FiberID: f.id, Carrier: -1, At: time.Now()})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(f.done)

		if err := f.mount(ctx); err != nil {
			f.setErr(err)
			p.emit(model.Event{Kind: model.EventFiberEnd, FiberID: f.id, Carrier: -1, At: time.Now()})
			return
		}

		f.setErr(fn(ctx, f))

		if f.mountedNow() {
			f.unmount()
		}
		p.emit(model.Event{Kind: model.EventFiberEnd, FiberID: f.id, Carrier: f.Carrier(), At: time.Now()})
	}()

	return f
}

// Wait blocks until every fiber spawned so far has finished.
func (p *CarrierPool) Wait() {
	p.wg.Wait()
}

// Snapshot returns per-carrier counters and the peak number of
// simultaneously mounted fibers.
func (p *CarrierPool) Snapshot() (carriers []model.CarrierStats, peakMounted int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	carriers = make([]model.CarrierStats, len(p.carrierMounts))
	for i := range p.carrierMounts {
		carriers[i] = model.CarrierStats{
			Carrier:        i,
			Mounts:         p.carrierMounts[i],
			DistinctFibers: len(p.carrierFibers[i]),
		}
	}
	return carriers, p.peakMounted
}

// acquire hands the calling fiber a carrier, waiting FIFO behind earlier
// requests when all slots are busy. It returns ctx.Err() if the context
// is cancelled before a carrier is granted.
func (p *CarrierPool) acquire(ctx context.Context, f *Fiber) (int, error) {
	p.mu.Lock()
	if len(p.free) > 0 && p.runq.Length() == 0 {
		c := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.mounted++
		if p.mounted > p.peakMounted {
			p.peakMounted = p.mounted
		}
		p.noteMount(c, f)
		p.mu.Unlock()
		return c, nil
	}

	req := &mountRequest{grant: make(chan int, 1)}
	p.runq.Add(req)
	p.mu.Unlock()

	select {
	case c := <-req.grant:
		p.mu.Lock()
		p.noteMount(c, f)
		p.mu.Unlock()
		return c, nil
	case <-ctx.Done():
		p.mu.Lock()
		req.abandoned = true
		p.mu.Unlock()
		// The grant may have raced the cancellation; pass the carrier on.
		select {
		case c := <-req.grant:
			p.release(c)
		default:
		}
		return -1, ctx.Err()
	}
}

// release returns a carrier to the pool, or hands it directly to the
// next queued waiter (the mounted count is unchanged in that case: the
// carrier stays busy).
func (p *CarrierPool) release(c int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.runq.Length() > 0 {
		req := p.runq.Remove().(*mountRequest)
		if req.abandoned {
			continue
		}
		req.grant <- c
		return
	}

	p.free = append(p.free, c)
	p.mounted--
}

// noteMount updates per-carrier counters. Caller holds p.mu.
func (p *CarrierPool) noteMount(c int, f *Fiber) {
	p.carrierMounts[c]++
	p.carrierFibers[c][f.id] = struct{}{}
}

func (p *CarrierPool) emit(ev model.Event) {
	if p.sink != nil {
		p.sink.Record(ev)
	}
}
