package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiberlab/fiberlab/internal/output"
	"github.com/fiberlab/fiberlab/internal/scope"
)

func structuredDemos() []*Demo {
	return []*Demo{
		{
			Name:     "failfast",
			Topic:    "structured",
			Synopsis: "Cancel every sibling task as soon as one fails",
			Run:      runFailFast,
		},
		{
			Name:     "firstsuccess",
			Topic:    "structured",
			Synopsis: "Race redundant sources and keep the first success",
			Run:      runFirstSuccess,
		},
		{
			Name:     "threshold",
			Topic:    "structured",
			Synopsis: "Stop forked work once enough results have arrived",
			Run:      runThreshold,
		},
		{
			Name:     "timeout",
			Topic:    "structured",
			Synopsis: "Join with a deadline and fall back to defaults for unfinished work",
			Run:      runTimeout,
		},
	}
}

func runFailFast(ctx context.Context, env *Env) error {
	env.Fmt.Title("FAIL FAST")
	env.Fmt.Stepf("forking three tasks; the second fails after 30ms")

	s := scope.NewFailFast[string](ctx)
	subs := make([]*scope.Subtask[string], 0, 3)

	for i, tc := range []struct {
		name  string
		delay time.Duration
		fail  bool
	}{
		{"orders", 20 * time.Millisecond, false},
		{"payments", 30 * time.Millisecond, true},
		{"shipping", 200 * time.Millisecond, false},
	} {
		tc := tc
		sub, err := s.Fork(func(ctx context.Context) (string, error) {
			select {
			case <-time.After(tc.delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			if tc.fail {
				return "", fmt.Errorf("%s backend unavailable", tc.name)
			}
			return tc.name + " loaded", nil
		})
		if err != nil {
			return fmt.Errorf("fork task %d: %w", i, err)
		}
		subs = append(subs, sub)
	}

	joinErr := s.Join()
	env.Fmt.Stepf("join returned: %v", joinErr)
	for i, sub := range subs {
		env.Fmt.Stepf("task %d finished %s", i, sub.State())
	}
	env.Fmt.Notef("the slow shipping task was cancelled, not awaited")
	return ctx.Err()
}

func runFirstSuccess(ctx context.Context, env *Env) error {
	env.Fmt.Title("FIRST SUCCESS")
	env.Fmt.Stepf("racing three replicas; the fastest healthy one wins")

	s := scope.NewFirstSuccess[string](ctx)
	for _, tc := range []struct {
		name  string
		delay time.Duration
		fail  bool
	}{
		{"replica-a", 40 * time.Millisecond, true},
		{"replica-b", 60 * time.Millisecond, false},
		{"replica-c", 150 * time.Millisecond, false},
	} {
		tc := tc
		if err := s.Fork(func(ctx context.Context) (string, error) {
			select {
			case <-time.After(tc.delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			if tc.fail {
				return "", fmt.Errorf("%s: connection refused", tc.name)
			}
			return tc.name, nil
		}); err != nil {
			return err
		}
	}

	winner, err := s.Join()
	if err != nil {
		env.Fmt.Stepf("all replicas failed: %v", err)
		return nil
	}
	env.Fmt.Stepf("answered by %s; the slower replica was cancelled", winner)
	return ctx.Err()
}

func runThreshold(ctx context.Context, env *Env) error {
	const forked = 8
	const needed = 3

	env.Fmt.Title("THRESHOLD JOIN")
	env.Fmt.Stepf("forking %d quote fetchers, joining after the first %d results", forked, needed)

	s := scope.NewThreshold[string](ctx, needed)
	start := time.Now()
	for i := 0; i < forked; i++ {
		i := i
		if _, err := s.Fork(func(ctx context.Context) (string, error) {
			delay := time.Duration(20+i*15) * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			return fmt.Sprintf("quote-%d", i), nil
		}); err != nil {
			return err
		}
	}

	if err := s.JoinUntil(time.Now().Add(2 * time.Second)); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer s.Close()

	results := s.Results()
	env.Fmt.Box(
		output.KV("Forked", fmt.Sprintf("%d", forked)),
		output.KV("Kept", fmt.Sprintf("%d", len(results))),
		output.KV("Elapsed", output.FormatDuration(time.Since(start))),
	)
	env.Fmt.Stepf("results: %s", strings.Join(results, ", "))
	env.Fmt.Notef("the remaining fetchers were cancelled the moment the threshold was met")
	return ctx.Err()
}

func runTimeout(ctx context.Context, env *Env) error {
	env.Fmt.Title("TIMEOUT WITH FALLBACKS")
	env.Fmt.Stepf("joining with an 80ms deadline; the slow task falls back to a default")

	s := scope.NewThreshold[int](ctx, 2)
	fast, err := s.Fork(func(ctx context.Context) (int, error) {
		select {
		case <-time.After(20 * time.Millisecond):
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	if err != nil {
		return err
	}
	slow, err := s.Fork(func(ctx context.Context) (int, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	if err != nil {
		return err
	}

	joinErr := s.JoinUntil(time.Now().Add(80 * time.Millisecond))
	defer s.Close()
	if !errors.Is(joinErr, scope.ErrDeadlineExceeded) {
		return fmt.Errorf("expected deadline to pass, got %v", joinErr)
	}

	env.Fmt.Stepf("join: %v", joinErr)
	env.Fmt.Stepf("fast task (%s): %d", fast.State(), scope.ResultOr(fast, -1))
	env.Fmt.Stepf("slow task (%s): %d (fallback)", slow.State(), scope.ResultOr(slow, -1))
	return ctx.Err()
}
