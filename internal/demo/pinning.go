package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/model"
	"github.com/fiberlab/fiberlab/internal/output"
)

func pinningDemos() []*Demo {
	return []*Demo{
		{
			Name:     "pinning",
			Topic:    "pinning",
			Synopsis: "Compare plain sleeps, sleeps under a pinning lock and sleeps under a yielding lock",
			Run:      runPinning,
		},
	}
}

func runPinning(ctx context.Context, env *Env) error {
	count := env.Carriers * 4
	const naps = 2
	const nap = 20 * time.Millisecond

	env.Fmt.Title("PINNING")
	env.Fmt.Stepf("%d fibers on %d carriers, each sleeping %s twice", count, env.Carriers, nap)

	plain := runPinScenario(ctx, env, count, func(ctx context.Context, f *fiber.Fiber) error {
		for i := 0; i < naps; i++ {
			if err := f.Sleep(ctx, nap); err != nil {
				return err
			}
		}
		return nil
	})

	pinned := runPinScenario(ctx, env, count, func(ctx context.Context, f *fiber.Fiber) error {
		var mu fiber.PinnedMutex
		for i := 0; i < naps; i++ {
			mu.Lock(f)
			err := f.Sleep(ctx, nap)
			mu.Unlock(f)
			if err != nil {
				return err
			}
		}
		return nil
	})

	yielding := runPinScenario(ctx, env, count, func(ctx context.Context, f *fiber.Fiber) error {
		mu := fiber.NewMutex()
		for i := 0; i < naps; i++ {
			if err := mu.Lock(ctx, f); err != nil {
				return err
			}
			err := f.Sleep(ctx, nap)
			mu.Unlock()
			if err != nil {
				return err
			}
		}
		return nil
	})

	env.Fmt.FormatTimings("PINNING COMPARISON", []output.Timing{
		{Label: "plain sleep", Duration: plain.elapsed, Note: fmt.Sprintf("%d pinned sleeps", plain.pinnedEvents)},
		{Label: "pinning lock", Duration: pinned.elapsed, Note: fmt.Sprintf("%d pinned sleeps", pinned.pinnedEvents)},
		{Label: "yielding lock", Duration: yielding.elapsed, Note: fmt.Sprintf("%d pinned sleeps", yielding.pinnedEvents)},
	})
	env.Fmt.Notef("a pinned sleep keeps its carrier busy, so %d fibers drain through %d carriers in waves", count, env.Carriers)
	return ctx.Err()
}

type pinResult struct {
	elapsed      time.Duration
	pinnedEvents int
}

func runPinScenario(ctx context.Context, env *Env, count int, body func(ctx context.Context, f *fiber.Fiber) error) pinResult {
	env.Recorder.Reset()
	env.Recorder.Start()
	pool := fiber.NewCarrierPool(env.Carriers, env.Recorder)

	start := time.Now()
	for i := 0; i < count; i++ {
		pool.Go(ctx, fmt.Sprintf("pin-%d", i), body)
	}
	pool.Wait()
	elapsed := time.Since(start)
	env.Recorder.Stop()

	pinned := 0
	for _, ev := range env.Recorder.Events() {
		if ev.Kind == model.EventPinned {
			pinned++
		}
	}
	return pinResult{elapsed: elapsed, pinnedEvents: pinned}
}
