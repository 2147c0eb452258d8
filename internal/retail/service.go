// Package retail is the toy product-lookup aggregator: three
// independent fetches (price, inventory, reviews) joined into one
// ProductDetails, implemented four equivalent ways. It exists as an
// API-equivalence fixture, not as an I/O framework.
package retail

import (
	"context"
	"time"
)

// ProductDetails is the aggregate of one lookup. It is assembled only
// when all three sub-fetches succeed and never mutated afterwards.
type ProductDetails struct {
	Price     float64
	Inventory int
	Reviews   []string
}

// Service simulates the three backend calls with injectable latencies
// and failures.
type Service struct {
	Price     float64
	Inventory int
	Reviews   []string

	PriceDelay     time.Duration
	InventoryDelay time.Duration
	ReviewsDelay   time.Duration

	// Any non-nil error makes the corresponding fetch fail after its
	// delay.
	PriceErr     error
	InventoryErr error
	ReviewsErr   error
}

// NewService returns a service with the fixture's canonical data and
// short latencies.
func NewService() *Service {
	return &Service{
		Price:          99.99,
		Inventory:      50,
		Reviews:        []string{"a", "b"},
		PriceDelay:     30 * time.Millisecond,
		InventoryDelay: 20 * time.Millisecond,
		ReviewsDelay:   40 * time.Millisecond,
	}
}

// FetchPrice returns the product price after the configured delay.
func (s *Service) FetchPrice(ctx context.Context) (float64, error) {
	if err := wait(ctx, s.PriceDelay); err != nil {
		return 0, err
	}
	if s.PriceErr != nil {
		return 0, s.PriceErr
	}
	return s.Price, nil
}

// FetchInventory returns the stock count after the configured delay.
func (s *Service) FetchInventory(ctx context.Context) (int, error) {
	if err := wait(ctx, s.InventoryDelay); err != nil {
		return 0, err
	}
	if s.InventoryErr != nil {
		return 0, s.InventoryErr
	}
	return s.Inventory, nil
}

// FetchReviews returns the review list after the configured delay.
func (s *Service) FetchReviews(ctx context.Context) ([]string, error) {
	if err := wait(ctx, s.ReviewsDelay); err != nil {
		return nil, err
	}
	if s.ReviewsErr != nil {
		return nil, s.ReviewsErr
	}
	out := make([]string, len(s.Reviews))
	copy(out, s.Reviews)
	return out, nil
}

// FetchPriceAsync is the callback-style variant used by the callback
// fetcher. Exactly one of onResult/onErr is invoked.
func (s *Service) FetchPriceAsync(ctx context.Context, onResult func(float64), onErr func(error)) {
	go func() {
		v, err := s.FetchPrice(ctx)
		if err != nil {
			onErr(err)
			return
		}
		onResult(v)
	}()
}

// FetchInventoryAsync is the callback-style inventory fetch.
func (s *Service) FetchInventoryAsync(ctx context.Context, onResult func(int), onErr func(error)) {
	go func() {
		v, err := s.FetchInventory(ctx)
		if err != nil {
			onErr(err)
			return
		}
		onResult(v)
	}()
}

// FetchReviewsAsync is the callback-style reviews fetch.
func (s *Service) FetchReviewsAsync(ctx context.Context, onResult func([]string), onErr func(error)) {
	go func() {
		v, err := s.FetchReviews(ctx)
		if err != nil {
			onErr(err)
			return
		}
		onResult(v)
	}()
}

func wait(ctx context.Context, d time.Duration) error {
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
