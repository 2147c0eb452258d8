package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/output"
	"github.com/fiberlab/fiberlab/internal/retail"
)

func retailDemos() []*Demo {
	return []*Demo{
		{
			Name:     "retail",
			Topic:    "retail",
			Synopsis: "Aggregate product details four ways and compare the styles",
			Run:      runRetail,
		},
	}
}

func runRetail(ctx context.Context, env *Env) error {
	svc := retail.NewService()

	env.Fmt.Title("PRODUCT AGGREGATION")
	env.Fmt.Stepf("price, inventory and reviews fetched concurrently, four styles")

	timings := make([]output.Timing, 0, 4)
	run := func(label, note string, fetch func(ctx context.Context) (retail.ProductDetails, error)) error {
		start := time.Now()
		details, err := fetch(ctx)
		elapsed := time.Since(start)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		timings = append(timings, output.Timing{Label: label, Duration: elapsed, Note: note})
		env.Fmt.Stepf("%-12s price=%.2f inventory=%d reviews=%d", label, details.Price, details.Inventory, len(details.Reviews))
		return nil
	}

	if err := run("worker pool", "fixed workers over a job channel", func(ctx context.Context) (retail.ProductDetails, error) {
		return retail.FetchWithWorkerPool(ctx, svc, 3)
	}); err != nil {
		return err
	}

	if err := run("fibers", "one fiber per fetch, carriers released while waiting", func(ctx context.Context) (retail.ProductDetails, error) {
		pool := fiber.NewCarrierPool(env.Carriers, nil)
		defer pool.Wait()
		return retail.FetchWithFibers(ctx, svc, pool)
	}); err != nil {
		return err
	}

	if err := run("futures", "errgroup with shared cancellation", func(ctx context.Context) (retail.ProductDetails, error) {
		return retail.FetchWithFutures(ctx, svc)
	}); err != nil {
		return err
	}

	if err := run("callbacks", "completion callbacks joined by a condition variable", func(ctx context.Context) (retail.ProductDetails, error) {
		return retail.FetchWithCallbacks(ctx, svc)
	}); err != nil {
		return err
	}

	env.Fmt.FormatTimings("FETCH STYLES", timings)
	env.Fmt.Notef("every style overlaps the three fetches; they differ in how failures and joins are expressed")
	return ctx.Err()
}
