package demo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/output"
	"github.com/fiberlab/fiberlab/internal/recorder"
)

func schedulingDemos() []*Demo {
	return []*Demo{
		{
			Name:     "mounting",
			Topic:    "scheduling",
			Synopsis: "Watch fibers change carriers across suspension points",
			Run:      runMounting,
		},
		{
			Name:     "mixed",
			Topic:    "scheduling",
			Synopsis: "Run CPU-bound and sleep-heavy fibers over one carrier pool",
			Run:      runMixed,
		},
	}
}

func runMounting(ctx context.Context, env *Env) error {
	env.Fmt.Title("MOUNTING AND UNMOUNTING")
	env.Fmt.Stepf("each fiber sleeps three times; every sleep unmounts and remounts")

	env.Recorder.Reset()
	env.Recorder.Start()
	pool := fiber.NewCarrierPool(env.Carriers, env.Recorder)

	count := env.Carriers * 3
	for i := 0; i < count; i++ {
		pool.Go(ctx, fmt.Sprintf("hop-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			for step := 0; step < 3; step++ {
				if err := f.Sleep(ctx, 10*time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		})
	}
	pool.Wait()
	env.Recorder.Stop()

	fibers := recorder.TrackAll(env.Recorder.Events())
	ids := make([]uint64, 0, len(fibers))
	for id := range fibers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	env.Fmt.Section("CARRIER HISTORY")
	for _, id := range ids {
		info := fibers[id]
		hops := make([]string, len(info.CarrierHistory))
		for i, c := range info.CarrierHistory {
			hops[i] = fmt.Sprintf("c%d", c)
		}
		env.Fmt.Stepf("fiber %-3d mounts=%d distinct=%d  %s",
			info.ID, info.Mounts, info.DistinctCarriers, strings.Join(hops, " -> "))
	}
	env.Fmt.Notef("a fiber rarely resumes on the carrier it left; the pool hands slots to whoever is next in line")
	return ctx.Err()
}

func runMixed(ctx context.Context, env *Env) error {
	env.Fmt.Title("MIXED WORKLOAD")

	pool := fiber.NewCarrierPool(env.Carriers, nil)
	start := time.Now()

	sleepy := env.Tasks
	for i := 0; i < sleepy; i++ {
		pool.Go(ctx, fmt.Sprintf("io-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			for step := 0; step < 4; step++ {
				if err := f.Sleep(ctx, 5*time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		})
	}

	crunchy := env.Carriers * 2
	for i := 0; i < crunchy; i++ {
		pool.Go(ctx, fmt.Sprintf("cpu-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			for step := 0; step < 50; step++ {
				spin(env.SpinFactor)
				if err := f.Yield(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}

	pool.Wait()
	elapsed := time.Since(start)

	_, peak := pool.Snapshot()
	env.Fmt.Box(
		output.KV("Sleep-heavy fibers", fmt.Sprintf("%d", sleepy)),
		output.KV("CPU-bound fibers", fmt.Sprintf("%d", crunchy)),
		output.KV("Peak mounted", fmt.Sprintf("%d", peak)),
		output.KV("Wall time", output.FormatDuration(elapsed)),
	)
	env.Fmt.Notef("CPU fibers yield between bursts so sleepers can remount promptly")
	return ctx.Err()
}

// spin burns a little CPU so the scheduler has real work to interleave.
func spin(factor int) {
	if factor < 1 {
		factor = 1
	}
	x := 0
	for i := 0; i < factor*20000; i++ {
		x += i % 7
	}
	_ = x
}
