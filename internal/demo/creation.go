package demo

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/output"
)

func creationDemos() []*Demo {
	return []*Demo{
		{
			Name:     "spawn",
			Topic:    "creation",
			Synopsis: "Compare the cost of spawning goroutines, fibers and pooled workers",
			Run:      runSpawn,
		},
		{
			Name:     "scaling",
			Topic:    "creation",
			Synopsis: "Run a high fiber count over a small carrier pool",
			Run:      runScaling,
		},
		{
			Name:     "memory",
			Topic:    "creation",
			Synopsis: "Estimate per-task memory overhead for parked goroutines and fibers",
			Run:      runMemory,
		},
	}
}

func runSpawn(ctx context.Context, env *Env) error {
	count := env.Tasks * 20
	work := func() {
		time.Sleep(time.Millisecond)
	}

	env.Fmt.Title("SPAWN COST")
	env.Fmt.Stepf("spawning %d tasks per strategy, each sleeping 1ms", count)

	goroutines := func() time.Duration {
		start := time.Now()
		var wg sync.WaitGroup
		for i := 0; i < count; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				work()
			}()
		}
		wg.Wait()
		return time.Since(start)
	}()

	fibers := func() time.Duration {
		pool := fiber.NewCarrierPool(env.Carriers, nil)
		start := time.Now()
		for i := 0; i < count; i++ {
			pool.Go(ctx, fmt.Sprintf("spawn-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
				return f.Sleep(ctx, time.Millisecond)
			})
		}
		pool.Wait()
		return time.Since(start)
	}()

	pooled := func() time.Duration {
		jobs := make(chan struct{})
		var wg sync.WaitGroup
		for w := 0; w < env.Carriers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range jobs {
					work()
				}
			}()
		}
		start := time.Now()
		for i := 0; i < count; i++ {
			jobs <- struct{}{}
		}
		close(jobs)
		wg.Wait()
		return time.Since(start)
	}()

	env.Fmt.FormatTimings("SPAWN COMPARISON", []output.Timing{
		{Label: "goroutines", Duration: goroutines, Note: "one goroutine per task"},
		{Label: "fibers", Duration: fibers, Note: fmt.Sprintf("%d carriers, sleep unmounts", env.Carriers)},
		{Label: "worker pool", Duration: pooled, Note: fmt.Sprintf("%d workers hold their thread while sleeping", env.Carriers)},
	})
	env.Fmt.Notef("fibers release their carrier during sleep, so a small pool still overlaps all %d sleeps", count)
	return ctx.Err()
}

func runScaling(ctx context.Context, env *Env) error {
	count := env.Tasks * 200
	env.Fmt.Title("SCALING")
	env.Fmt.Stepf("running %d fibers over %d carriers", count, env.Carriers)

	pool := fiber.NewCarrierPool(env.Carriers, env.Recorder)
	start := time.Now()
	for i := 0; i < count; i++ {
		pool.Go(ctx, fmt.Sprintf("scale-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			return f.Sleep(ctx, 5*time.Millisecond)
		})
	}
	pool.Wait()
	elapsed := time.Since(start)

	carriers, peak := pool.Snapshot()
	env.Fmt.Box(
		output.KV("Fibers", fmt.Sprintf("%d", count)),
		output.KV("Carriers", fmt.Sprintf("%d", len(carriers))),
		output.KV("Peak mounted", fmt.Sprintf("%d", peak)),
		output.KV("Wall time", output.FormatDuration(elapsed)),
		output.KV("Throughput", fmt.Sprintf("%.0f fibers/s", float64(count)/elapsed.Seconds())),
	)
	return ctx.Err()
}

func runMemory(ctx context.Context, env *Env) error {
	count := env.Tasks * 100
	env.Fmt.Title("MEMORY OVERHEAD")
	env.Fmt.Stepf("parking %d tasks per strategy and sampling heap growth", count)

	perGoroutine := measureParked(count, func(release <-chan struct{}, done *sync.WaitGroup) {
		go func() {
			defer done.Done()
			<-release
		}()
	})

	pool := fiber.NewCarrierPool(env.Carriers, nil)
	perFiber := measureParked(count, func(release <-chan struct{}, done *sync.WaitGroup) {
		pool.Go(ctx, "parked", func(ctx context.Context, f *fiber.Fiber) error {
			defer done.Done()
			return f.Block(ctx, func(ctx context.Context) error {
				<-release
				return nil
			})
		})
	})

	env.Fmt.Box(
		output.KV("Parked goroutine", fmt.Sprintf("~%d B", perGoroutine)),
		output.KV("Parked fiber", fmt.Sprintf("~%d B", perFiber)),
	)
	env.Fmt.Notef("a parked fiber is a parked goroutine plus bookkeeping, and it holds no carrier while blocked")
	return ctx.Err()
}

// measureParked spawns count parked tasks, samples the heap delta, then
// releases them. The numbers are estimates; GC timing adds noise.
func measureParked(count int, spawn func(release <-chan struct{}, done *sync.WaitGroup)) uint64 {
	release := make(chan struct{})
	var done sync.WaitGroup
	done.Add(count)

	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	for i := 0; i < count; i++ {
		spawn(release, &done)
	}
	time.Sleep(50 * time.Millisecond)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	close(release)
	done.Wait()

	if after.HeapAlloc <= before.HeapAlloc {
		return 0
	}
	return (after.HeapAlloc - before.HeapAlloc) / uint64(count)
}
