package scope

import "sync"

// SubtaskState is the lifecycle of one forked task: Pending, then
// exactly one terminal state.
type SubtaskState int

const (
	SubtaskPending SubtaskState = iota
	SubtaskSuccess
	SubtaskFailed
	SubtaskCancelled
)

func (s SubtaskState) String() string {
	switch s {
	case SubtaskPending:
		return "pending"
	case SubtaskSuccess:
		return "success"
	case SubtaskFailed:
		return "failed"
	case SubtaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subtask is the handle for one forked task. Its state moves from
// Pending to a terminal state exactly once and never back.
type Subtask[T any] struct {
	mu    sync.Mutex
	state SubtaskState
	val   T
	err   error
}

// State returns the subtask's current state.
func (s *Subtask[T]) State() SubtaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get returns the subtask's result. The error is the task's own failure
// for Failed subtasks and ErrSubtaskUnfinished for Pending or Cancelled
// ones.
func (s *Subtask[T]) Get() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SubtaskSuccess:
		return s.val, nil
	case SubtaskFailed:
		var zero T
		return zero, s.err
	default:
		var zero T
		return zero, ErrSubtaskUnfinished
	}
}

// complete records the terminal state. Later calls are ignored so a
// subtask never leaves a terminal state.
func (s *Subtask[T]) complete(state SubtaskState, val T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SubtaskPending {
		return
	}
	s.state = state
	s.val = val
	s.err = err
}

// ResultOr returns the subtask's value when it succeeded and fallback
// otherwise. This is the deadline fallback pattern: keep what finished,
// substitute caller-supplied defaults for the rest.
func ResultOr[T any](s *Subtask[T], fallback T) T {
	if v, err := s.Get(); err == nil {
		return v
	}
	return fallback
}
