package scope

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestThresholdJoinStopsAtThreshold(t *testing.T) {
	t.Parallel()

	s := NewThreshold[int](context.Background(), 3)
	var cancelled atomic.Int32

	subs := make([]*Subtask[int], 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		sub, err := s.Fork(func(ctx context.Context) (int, error) {
			delay := time.Duration(10+i*10) * time.Millisecond
			select {
			case <-time.After(delay):
				return i, nil
			case <-ctx.Done():
				cancelled.Add(1)
				return 0, ctx.Err()
			}
		})
		if err != nil {
			t.Fatalf("Fork(%d): %v", i, err)
		}
		subs = append(subs, sub)
	}

	if err := s.JoinUntil(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("JoinUntil: %v", err)
	}

	results := s.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %v", len(results), results)
	}
	sort.Ints(results)
	for i, want := range []int{0, 1, 2} {
		if results[i] != want {
			t.Errorf("results[%d] = %d, want %d", i, results[i], want)
		}
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close after join: %v", err)
	}

	// How many tasks observe the cancellation depends on timing, but
	// once Close has drained the scope every task beyond the threshold
	// is cancelled, whether it lost the race or succeeded after
	// shutdown.
	if got := cancelled.Load(); got > 7 {
		t.Errorf("cancelled = %d, want at most 7", got)
	}
	var succeeded, stopped int
	for _, sub := range subs {
		switch sub.State() {
		case SubtaskSuccess:
			succeeded++
		case SubtaskCancelled:
			stopped++
		default:
			t.Errorf("unexpected subtask state %v", sub.State())
		}
	}
	if succeeded != 3 || stopped != 7 {
		t.Errorf("subtask states = %d success, %d cancelled, want 3 and 7", succeeded, stopped)
	}
}

func TestThresholdNeverExceedsThreshold(t *testing.T) {
	t.Parallel()

	// All tasks race to complete at once; the count-compare-cancel must
	// keep the recorded successes at exactly the threshold.
	const threshold = 4
	const tasks = 32

	s := NewThreshold[int](context.Background(), threshold)
	start := make(chan struct{})

	for i := 0; i < tasks; i++ {
		i := i
		if _, err := s.Fork(func(ctx context.Context) (int, error) {
			<-start
			return i, nil
		}); err != nil {
			t.Fatalf("Fork: %v", err)
		}
	}

	close(start)
	if err := s.JoinUntil(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("JoinUntil: %v", err)
	}
	if got := len(s.Results()); got != threshold {
		t.Fatalf("got %d results, want exactly %d", got, threshold)
	}
}

func TestThresholdJoinBelowThresholdIsNotAnError(t *testing.T) {
	t.Parallel()

	s := NewThreshold[string](context.Background(), 5)
	for i := 0; i < 3; i++ {
		i := i
		if _, err := s.Fork(func(ctx context.Context) (string, error) {
			return fmt.Sprintf("r%d", i), nil
		}); err != nil {
			t.Fatalf("Fork: %v", err)
		}
	}

	if err := s.JoinUntil(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("JoinUntil with fewer tasks than threshold: %v", err)
	}
	if got := len(s.Results()); got != 3 {
		t.Errorf("got %d results, want 3", got)
	}
}

func TestThresholdDeadlineKeepsEarlyResults(t *testing.T) {
	t.Parallel()

	s := NewThreshold[int](context.Background(), 3)

	fast, err := s.Fork(func(ctx context.Context) (int, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	slow, err := s.Fork(func(ctx context.Context) (int, error) {
		select {
		case <-time.After(10 * time.Second):
			return 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	err = s.JoinUntil(time.Now().Add(50 * time.Millisecond))
	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("JoinUntil = %v, want ErrDeadlineExceeded", err)
	}

	if got := s.Results(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Results = %v, want [1]", got)
	}
	if got := fast.State(); got != SubtaskSuccess {
		t.Errorf("fast state = %v, want success", got)
	}
	if got := slow.State(); got != SubtaskCancelled {
		t.Errorf("slow state = %v, want cancelled", got)
	}
	if v := ResultOr(slow, -1); v != -1 {
		t.Errorf("ResultOr(slow) = %d, want fallback -1", v)
	}
}

func TestThresholdForkAfterJoinFails(t *testing.T) {
	t.Parallel()

	s := NewThreshold[int](context.Background(), 1)
	if _, err := s.Fork(func(ctx context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if err := s.JoinUntil(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("JoinUntil: %v", err)
	}

	_, err := s.Fork(func(ctx context.Context) (int, error) { return 2, nil })
	if !errors.Is(err, ErrScopeJoining) {
		t.Fatalf("Fork after join = %v, want ErrScopeJoining", err)
	}
}

func TestThresholdCloseWithoutJoin(t *testing.T) {
	t.Parallel()

	s := NewThreshold[int](context.Background(), 2)
	taskExited := make(chan struct{})
	if _, err := s.Fork(func(ctx context.Context) (int, error) {
		defer close(taskExited)
		<-ctx.Done()
		return 0, ctx.Err()
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}

	err := s.Close()
	if !errors.Is(err, ErrNotJoined) {
		t.Fatalf("Close without join = %v, want ErrNotJoined", err)
	}

	select {
	case <-taskExited:
	default:
		t.Error("Close returned before the forked task exited")
	}
}

func TestThresholdShutdownIsIdempotentUnderRace(t *testing.T) {
	t.Parallel()

	// Hammer the threshold boundary: many scopes where the deadline and
	// the T-th success land at the same instant. A double close of the
	// internal channel or a double cancel would panic.
	for round := 0; round < 50; round++ {
		s := NewThreshold[int](context.Background(), 1)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Fork(func(ctx context.Context) (int, error) { return 1, nil })
		}()
		err := s.JoinUntil(time.Now())
		wg.Wait()
		if err != nil && !errors.Is(err, ErrDeadlineExceeded) {
			t.Fatalf("round %d: JoinUntil = %v", round, err)
		}
		s.Close()
	}
}

func TestSubtaskGetBeforeCompletion(t *testing.T) {
	t.Parallel()

	s := NewThreshold[int](context.Background(), 1)
	blocked := make(chan struct{})
	sub, err := s.Fork(func(ctx context.Context) (int, error) {
		<-blocked
		return 9, nil
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	if _, err := sub.Get(); !errors.Is(err, ErrSubtaskUnfinished) {
		t.Errorf("Get on pending subtask = %v, want ErrSubtaskUnfinished", err)
	}

	close(blocked)
	if err := s.JoinUntil(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("JoinUntil: %v", err)
	}
	v, err := sub.Get()
	if err != nil || v != 9 {
		t.Errorf("Get = (%d, %v), want (9, nil)", v, err)
	}
}

func TestThresholdParentContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewThreshold[int](ctx, 2)
	if _, err := s.Fork(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}

	cancel()
	if err := s.JoinUntil(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("JoinUntil: %v", err)
	}
	if got := len(s.Results()); got != 0 {
		t.Errorf("got %d results after parent cancellation, want 0", got)
	}
}
