// Package scope provides structured join scopes: constructs that run a
// set of forked tasks concurrently and guarantee that no task outlives
// the scope that created it. Cancellation is cooperative: a cancelled
// task observes its context at the next blocking point; nothing is
// forcibly terminated.
package scope

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Errors reported by join scopes.
var (
	// ErrDeadlineExceeded is returned by JoinUntil when the success
	// threshold was not reached in time. Results collected before the
	// deadline stay accessible.
	ErrDeadlineExceeded = errors.New("scope: join deadline exceeded")

	// ErrScopeJoining is returned by Fork once joining has begun.
	ErrScopeJoining = errors.New("scope: fork after join started")

	// ErrNotJoined is returned by Close when the scope is abandoned
	// without joining.
	ErrNotJoined = errors.New("scope: closed without join")

	// ErrSubtaskUnfinished is returned by Get on a pending or cancelled
	// subtask.
	ErrSubtaskUnfinished = errors.New("scope: subtask did not complete")
)

// ScopeState is the scope lifecycle: accepting forks, waiting for the
// join condition, then closed.
type ScopeState int

const (
	ScopeOpen ScopeState = iota
	ScopeJoining
	ScopeClosed
)

func (s ScopeState) String() string {
	switch s {
	case ScopeOpen:
		return "open"
	case ScopeJoining:
		return "joining"
	case ScopeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ThresholdScope runs independent tasks and completes as soon as a
// configured number of them have succeeded, cancelling the rest. The
// count-compare-cancel sequence runs under one mutex, so completions
// racing at the threshold boundary trigger shutdown exactly once.
type ThresholdScope[T any] struct {
	threshold int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu           sync.Mutex
	state        ScopeState
	results      []T
	successes    int
	shutdown     bool // one-shot: set when the T-th success (or the deadline) cancels the scope
	thresholdHit chan struct{}
}

// NewThreshold creates a scope that completes after threshold successful
// tasks. A threshold below 1 is treated as 1.
func NewThreshold[T any](ctx context.Context, threshold int) *ThresholdScope[T] {
	if threshold < 1 {
		threshold = 1
	}
	sctx, cancel := context.WithCancel(ctx)
	return &ThresholdScope[T]{
		threshold:    threshold,
		ctx:          sctx,
		cancel:       cancel,
		thresholdHit: make(chan struct{}),
	}
}

// State returns the scope's lifecycle state.
func (s *ThresholdScope[T]) State() ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fork registers one task for concurrent execution and returns its
// handle. Forking is only allowed before JoinUntil is called.
func (s *ThresholdScope[T]) Fork(fn func(ctx context.Context) (T, error)) (*Subtask[T], error) {
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
		s.handleComplete(sub, val, err)
	}()

	return sub, nil
}

// handleComplete records one task's terminal transition. It runs once
// per task; the increment-and-compare against the threshold and the
// resulting scope-wide cancellation are atomic with respect to other
// completions.
func (s *ThresholdScope[T]) handleComplete(sub *Subtask[T], val T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		state := SubtaskFailed
		if s.shutdown || errors.Is(err, context.Canceled) {
			state = SubtaskCancelled
		}
		var zero T
		sub.complete(state, zero, err)
		return
	}

	if s.shutdown {
		// Succeeded after the scope was already shutting down: the
		// result is discarded so the scope never exceeds its threshold.
		var zero T
		sub.complete(SubtaskCancelled, zero, s.ctx.Err())
		return
	}

	sub.complete(SubtaskSuccess, val, nil)
	s.results = append(s.results, val)
	s.successes++
	if s.successes >= s.threshold {
		s.shutdown = true
		close(s.thresholdHit)
		s.cancel()
	}
}

// JoinUntil blocks until the threshold is met, every task has finished,
// or the deadline passes, whichever comes first. On deadline it cancels
// the remaining tasks, waits for them to acknowledge, and returns
// ErrDeadlineExceeded; results gathered before the deadline remain
// accessible through Results.
func (s *ThresholdScope[T]) JoinUntil(deadline time.Time) error {
	s.mu.Lock()
	if s.state != ScopeOpen {
		s.mu.Unlock()
		return ErrScopeJoining
	}
	s.state = ScopeJoining
	s.mu.Unlock()

	allDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(allDone)
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var joinErr error
	select {
	case <-s.thresholdHit:
		// Shutdown already triggered by the T-th success; wait for the
		// cancelled stragglers to observe it.
		<-allDone
	case <-allDone:
		// Every task finished before the threshold was reached. Not an
		// error: the caller gets whatever succeeded.
	case <-timer.C:
		s.beginShutdown()
		<-allDone
		joinErr = ErrDeadlineExceeded
	}

	s.mu.Lock()
	s.state = ScopeClosed
	s.mu.Unlock()
	s.cancel()
	return joinErr
}

// beginShutdown cancels outstanding tasks. It is idempotent: concurrent
// or repeated triggers cancel each pending task exactly once.
func (s *ThresholdScope[T]) beginShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return
	}
	s.shutdown = true
	s.cancel()
}

// Results returns a snapshot of the successful results gathered so far.
// It is safe to call after a join that ended by threshold or by
// deadline.
func (s *ThresholdScope[T]) Results() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.results))
	copy(out, s.results)
	return out
}

// Close releases the scope. Closing a scope that was never joined
// cancels and waits for its tasks, so no task outlives the scope, and
// reports ErrNotJoined.
func (s *ThresholdScope[T]) Close() error {
	s.mu.Lock()
	joined := s.state != ScopeOpen
	s.state = ScopeClosed
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	if !joined {
		return ErrNotJoined
	}
	return nil
}
