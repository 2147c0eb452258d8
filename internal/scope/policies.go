package scope

import (
	"context"
	"errors"
	"sync"
)

// ErrAllFailed is returned by FirstSuccessScope.Join when every task
// failed. The first failure is attached as the cause.
var ErrAllFailed = errors.New("scope: all subtasks failed")

// FailFastScope runs tasks that must all succeed. The first failure
// cancels every other task and becomes the join error.
type FailFastScope[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    ScopeState
	firstErr error
}

// NewFailFast creates a scope with shutdown-on-failure semantics.
func NewFailFast[T any](ctx context.Context) *FailFastScope[T] {
	sctx, cancel := context.WithCancel(ctx)
	return &FailFastScope[T]{ctx: sctx, cancel: cancel}
}

// Fork registers one task and returns its handle.
func (s *FailFastScope[T]) Fork(fn func(ctx context.Context) (T, error)) (*Subtask[T], error) {
	s.mu.Lock()
	if s.state != ScopeOpen {
		s.mu.Unlock()
		return nil, ErrScopeJoining
	}
	sub := &Subtask[T]{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		val, err := fn(s.ctx)
		if err == nil {
			sub.complete(SubtaskSuccess, val, nil)
			return
		}

		var zero T
		s.mu.Lock()
		if s.firstErr == nil && !errors.Is(err, context.Canceled) {
			s.firstErr = err
			s.cancel()
			sub.complete(SubtaskFailed, zero, err)
		} else {
			sub.complete(SubtaskCancelled, zero, err)
		}
		s.mu.Unlock()
	}()

	return sub, nil
}

// Join waits for every task. It returns the first failure, if any; the
// remaining tasks were cancelled when it occurred.
func (s *FailFastScope[T]) Join() error {
	s.mu.Lock()
	if s.state != ScopeOpen {
		s.mu.Unlock()
		return ErrScopeJoining
	}
	s.state = ScopeJoining
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ScopeClosed
	return s.firstErr
}

// FirstSuccessScope runs redundant tasks and keeps the first success,
// cancelling the rest.
type FirstSuccessScope[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    ScopeState
	got      bool
	winner   T
	firstErr error
}

// NewFirstSuccess creates a scope with shutdown-on-success semantics.
func NewFirstSuccess[T any](ctx context.Context) *FirstSuccessScope[T] {
	sctx, cancel := context.WithCancel(ctx)
	return &FirstSuccessScope[T]{ctx: sctx, cancel: cancel}
}

// Fork registers one task.
func (s *FirstSuccessScope[T]) Fork(fn func(ctx context.Context) (T, error)) error {
	s.mu.Lock()
	if s.state != ScopeOpen {
		s.mu.Unlock()
		return ErrScopeJoining
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		val, err := fn(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			if s.firstErr == nil && !errors.Is(err, context.Canceled) {
				s.firstErr = err
			}
			return
		}
		if !s.got {
			s.got = true
			s.winner = val
			s.cancel()
		}
	}()

	return nil
}

// Join waits for the scope to settle and returns the winning result. It
// returns ErrAllFailed (wrapping the first failure) when no task
// succeeded.
func (s *FirstSuccessScope[T]) Join() (T, error) {
	s.mu.Lock()
	if s.state != ScopeOpen {
		s.mu.Unlock()
		var zero T
		return zero, ErrScopeJoining
	}
	s.state = ScopeJoining
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ScopeClosed
	if s.got {
		return s.winner, nil
	}
	var zero T
	if s.firstErr != nil {
		return zero, errors.Join(ErrAllFailed, s.firstErr)
	}
	return zero, ErrAllFailed
}
