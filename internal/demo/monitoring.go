package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/fiberlab/fiberlab/internal/analyzer"
	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/stats"
)

func monitoringDemos() []*Demo {
	return []*Demo{
		{
			Name:     "monitoring",
			Topic:    "monitoring",
			Synopsis: "Record a workload, then print the aggregated summary and insights",
			Run:      runMonitoring,
		},
	}
}

// RunInstrumented runs the standard observable workload against env's
// recorder. The monitor subcommand reuses it for the live view.
func RunInstrumented(ctx context.Context, env *Env) error {
	pool := fiber.NewCarrierPool(env.Carriers, env.Recorder)

	for i := 0; i < env.Tasks; i++ {
		pool.Go(ctx, fmt.Sprintf("work-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			if err := f.Sleep(ctx, 15*time.Millisecond); err != nil {
				return err
			}
			spin(env.SpinFactor)
			return f.Sleep(ctx, 10*time.Millisecond)
		})
	}

	// A few fibers that sleep while pinned so the analyzer has
	// something to flag.
	for i := 0; i < env.Carriers; i++ {
		pool.Go(ctx, fmt.Sprintf("pinner-%d", i), func(ctx context.Context, f *fiber.Fiber) error {
			var mu fiber.PinnedMutex
			mu.Lock(f)
			defer mu.Unlock(f)
			return f.Sleep(ctx, 30*time.Millisecond)
		})
	}

	pool.Wait()
	return ctx.Err()
}

func runMonitoring(ctx context.Context, env *Env) error {
	env.Fmt.Title("MONITORING")
	env.Fmt.Stepf("recording %d fibers over %d carriers", env.Tasks+env.Carriers, env.Carriers)

	env.Recorder.Reset()
	env.Recorder.Start()
	err := RunInstrumented(ctx, env)
	env.Recorder.Stop()
	if err != nil {
		return err
	}

	summary := analyzer.Analyze(stats.NewAggregator(env.Recorder.Events()).Summary())
	if err := env.Fmt.FormatRunSummary(summary); err != nil {
		return err
	}
	return env.Fmt.FormatInsights(analyzer.GenerateInsights(summary))
}
