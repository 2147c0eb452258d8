package model

import "time"

// FiberState represents the scheduling state of a fiber
type FiberState int

const (
	StateNew FiberState = iota
	StateRunnable
	StateMounted
	StateUnmounted
	StateDone
)

func (s FiberState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunnable:
		return "runnable"
	case StateMounted:
		return "mounted"
	case StateUnmounted:
		return "unmounted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// EventKind identifies a recorder event emitted by the fiber runtime
type EventKind int

const (
	EventFiberStart EventKind = iota
	EventFiberEnd
	EventMount
	EventUnmount
	EventPinned
	eventKindCount
)

func (k EventKind) String() string {
	switch k {
	case EventFiberStart:
		return "fiber.Start"
	case EventFiberEnd:
		return "fiber.End"
	case EventMount:
		return "fiber.Mount"
	case EventUnmount:
		return "fiber.Unmount"
	case EventPinned:
		return "fiber.Pinned"
	default:
		return "unknown"
	}
}

// EventKinds lists every kind the runtime can emit, in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, eventKindCount)
	for k := EventKind(0); k < eventKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseEventKind resolves a kind by its display name. The second return
// is false for names the runtime does not emit.
func ParseEventKind(name string) (EventKind, bool) {
	for k := EventKind(0); k < eventKindCount; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Event is one recorded runtime occurrence.
type Event struct {
	Kind    EventKind
	FiberID uint64
	Carrier int
	At      time.Time

	// Span is non-zero for EventPinned: how long the carrier was held
	// across a suspension point.
	Span time.Duration
}

// FiberInfo tracks the observed lifecycle of one fiber across a recording.
type FiberInfo struct {
	ID               uint64
	StartedAt        time.Time
	EndedAt          time.Time
	Mounts           int
	DistinctCarriers int
	PinnedSpans      int
	PinnedTotal      time.Duration
	State            FiberState

	// CarrierHistory lists the carriers this fiber mounted, in order.
	CarrierHistory []int
}

// CarrierStats aggregates activity on one carrier slot.
type CarrierStats struct {
	Carrier        int
	Mounts         int
	DistinctFibers int
	PinnedTime     time.Duration
}

// RunSummary holds aggregate metrics for one recorded run.
type RunSummary struct {
	FibersStarted  int
	FibersFinished int
	PeakMounted    int
	TotalMounts    int
	TotalUnmounts  int
	PinnedEvents   int
	PinnedTotal    time.Duration
	WallTime       time.Duration

	// Carriers holds the mount distribution, ordered by carrier index.
	Carriers []CarrierStats

	// TopPinned lists fibers with the most pinned carrier time, worst first.
	TopPinned []*FiberInfo

	HasSchedulingIssues bool
	Issues              []string
}
