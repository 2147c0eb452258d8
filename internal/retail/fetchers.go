package retail

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fiberlab/fiberlab/internal/fiber"
)

// The four fetchers below implement the same contract with different
// concurrency machinery: all three sub-fetches must succeed for the
// aggregate to succeed; any single failure propagates as the aggregate
// failure and the other fetches are cancelled or their outcomes
// ignored.

// FetchWithWorkerPool runs the three fetches on a fixed pool of worker
// goroutines, the OS-thread-pool shape of the pattern.
func FetchWithWorkerPool(ctx context.Context, svc *Service, workers int) (ProductDetails, error) {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		details ProductDetails
		mu      sync.Mutex
	)

	jobs := make(chan func(ctx context.Context) error, 3)
	jobs <- func(ctx context.Context) error {
		v, err := svc.FetchPrice(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		details.Price = v
		mu.Unlock()
		return nil
	}
	jobs <- func(ctx context.Context) error {
		v, err := svc.FetchInventory(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		details.Inventory = v
		mu.Unlock()
		return nil
	}
	jobs <- func(ctx context.Context) error {
		v, err := svc.FetchReviews(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		details.Reviews = v
		mu.Unlock()
		return nil
	}
	close(jobs)

	errs := make(chan error, 3)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				errs <- job(ctx)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			cancel()
			return ProductDetails{}, fmt.Errorf("worker pool fetch: %w", err)
		}
	}
	return details, nil
}

// FetchWithFibers fans the three fetches out over the fiber runtime;
// each fetch suspends its fiber, releasing the carrier while blocked.
func FetchWithFibers(ctx context.Context, svc *Service, pool *fiber.CarrierPool) (ProductDetails, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		details ProductDetails
		mu      sync.Mutex
	)

	fibers := []*fiber.Fiber{
		pool.Go(ctx, "fetch-price", func(ctx context.Context, f *fiber.Fiber) error {
			return f.Block(ctx, func(ctx context.Context) error {
				v, err := svc.FetchPrice(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				details.Price = v
				mu.Unlock()
				return nil
			})
		}),
		pool.Go(ctx, "fetch-inventory", func(ctx context.Context, f *fiber.Fiber) error {
			return f.Block(ctx, func(ctx context.Context) error {
				v, err := svc.FetchInventory(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				details.Inventory = v
				mu.Unlock()
				return nil
			})
		}),
		pool.Go(ctx, "fetch-reviews", func(ctx context.Context, f *fiber.Fiber) error {
			return f.Block(ctx, func(ctx context.Context) error {
				v, err := svc.FetchReviews(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				details.Reviews = v
				mu.Unlock()
				return nil
			})
		}),
	}

	var firstErr error
	for _, f := range fibers {
		<-f.Done()
		if err := f.Err(); err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return ProductDetails{}, fmt.Errorf("fiber fetch: %w", firstErr)
	}
	return details, nil
}

// FetchWithFutures composes the three fetches with an errgroup: the
// promise-composition shape. The group context cancels the laggards on
// the first failure.
func FetchWithFutures(ctx context.Context, svc *Service) (ProductDetails, error) {
	g, ctx := errgroup.WithContext(ctx)

	var details ProductDetails
	g.Go(func() error {
		v, err := svc.FetchPrice(ctx)
		if err != nil {
			return err
		}
		details.Price = v
		return nil
	})
	g.Go(func() error {
		v, err := svc.FetchInventory(ctx)
		if err != nil {
			return err
		}
		details.Inventory = v
		return nil
	})
	g.Go(func() error {
		v, err := svc.FetchReviews(ctx)
		if err != nil {
			return err
		}
		details.Reviews = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return ProductDetails{}, fmt.Errorf("future fetch: %w", err)
	}
	return details, nil
}

// FetchWithCallbacks drives the async callback API with a shared
// condition variable. Completions signal "one more done" and failures
// signal "error" on the same cond; when several fetches fail
// concurrently the first error to reach the callback wins and later
// ones are ignored; callers rely on that resolution.
func FetchWithCallbacks(ctx context.Context, svc *Service) (ProductDetails, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		cond      = sync.NewCond(&mu)
		completed int
		firstErr  error
		details   ProductDetails
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		cond.Broadcast()
		mu.Unlock()
	}
	done := func(apply func()) {
		mu.Lock()
		apply()
		completed++
		cond.Broadcast()
		mu.Unlock()
	}

	svc.FetchPriceAsync(ctx,
		func(v float64) { done(func() { details.Price = v }) },
		fail)
	svc.FetchInventoryAsync(ctx,
		func(v int) { done(func() { details.Inventory = v }) },
		fail)
	svc.FetchReviewsAsync(ctx,
		func(v []string) { done(func() { details.Reviews = v }) },
		fail)

	mu.Lock()
	for completed < 3 && firstErr == nil {
		cond.Wait()
	}
	err := firstErr
	out := details
	mu.Unlock()

	if err != nil {
		cancel() // stop the remaining fetches; their outcomes are ignored
		return ProductDetails{}, fmt.Errorf("callback fetch: %w", err)
	}
	return out, nil
}
