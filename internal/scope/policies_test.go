package scope

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFailFastCancelsSiblingsOnFailure(t *testing.T) {
	t.Parallel()

	s := NewFailFast[string](context.Background())
	boom := errors.New("backend down")
	var slowCancelled atomic.Bool

	if _, err := s.Fork(func(ctx context.Context) (string, error) {
		return "", boom
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}
	slow, err := s.Fork(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(10 * time.Second):
			return "slow", nil
		case <-ctx.Done():
			slowCancelled.Store(true)
			return "", ctx.Err()
		}
	})
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	if err := s.Join(); !errors.Is(err, boom) {
		t.Fatalf("Join = %v, want the original failure", err)
	}
	if !slowCancelled.Load() {
		t.Error("slow sibling was not cancelled")
	}
	if got := slow.State(); got != SubtaskCancelled {
		t.Errorf("slow state = %v, want cancelled", got)
	}
}

func TestFailFastAllSucceed(t *testing.T) {
	t.Parallel()

	s := NewFailFast[int](context.Background())
	subs := make([]*Subtask[int], 0, 3)
	for i := 0; i < 3; i++ {
		i := i
		sub, err := s.Fork(func(ctx context.Context) (int, error) { return i * 10, nil })
		if err != nil {
			t.Fatalf("Fork: %v", err)
		}
		subs = append(subs, sub)
	}

	if err := s.Join(); err != nil {
		t.Fatalf("Join: %v", err)
	}
	for i, sub := range subs {
		v, err := sub.Get()
		if err != nil || v != i*10 {
			t.Errorf("subtask %d: Get = (%d, %v), want (%d, nil)", i, v, err, i*10)
		}
	}
}

func TestFirstSuccessKeepsTheWinner(t *testing.T) {
	t.Parallel()

	s := NewFirstSuccess[string](context.Background())
	if err := s.Fork(func(ctx context.Context) (string, error) {
		return "", errors.New("replica a refused")
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if err := s.Fork(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(20 * time.Millisecond):
			return "replica-b", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if err := s.Fork(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(10 * time.Second):
			return "replica-c", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}); err != nil {
		t.Fatalf("Fork: %v", err)
	}

	winner, err := s.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if winner != "replica-b" {
		t.Errorf("winner = %q, want replica-b", winner)
	}
}

func TestFirstSuccessAllFailed(t *testing.T) {
	t.Parallel()

	s := NewFirstSuccess[string](context.Background())
	boom := errors.New("refused")
	for i := 0; i < 3; i++ {
		if err := s.Fork(func(ctx context.Context) (string, error) {
			return "", boom
		}); err != nil {
			t.Fatalf("Fork: %v", err)
		}
	}

	_, err := s.Join()
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Join = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Join error does not carry the first failure: %v", err)
	}
}

func TestPolicyForkAfterJoinFails(t *testing.T) {
	t.Parallel()

	ff := NewFailFast[int](context.Background())
	if err := ff.Join(); err != nil {
		t.Fatalf("empty Join: %v", err)
	}
	if _, err := ff.Fork(func(ctx context.Context) (int, error) { return 0, nil }); !errors.Is(err, ErrScopeJoining) {
		t.Errorf("FailFast Fork after join = %v, want ErrScopeJoining", err)
	}

	fs := NewFirstSuccess[int](context.Background())
	if _, err := fs.Join(); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("empty FirstSuccess join = %v, want ErrAllFailed", err)
	}
	if err := fs.Fork(func(ctx context.Context) (int, error) { return 0, nil }); !errors.Is(err, ErrScopeJoining) {
		t.Errorf("FirstSuccess Fork after join = %v, want ErrScopeJoining", err)
	}
}
