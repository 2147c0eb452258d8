package recorder

import (
	"github.com/fiberlab/fiberlab/internal/model"
)

// Tracker replays recorded events into per-fiber lifecycle state.
type Tracker struct {
	fibers map[uint64]*model.FiberInfo
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		fibers: make(map[uint64]*model.FiberInfo),
	}
}

// Apply feeds one event through the fiber's state machine.
func (t *Tracker) Apply(ev model.Event) {
	fi, ok := t.fibers[ev.FiberID]
	if !ok {
		fi = &model.FiberInfo{ID: ev.FiberID, State: model.StateNew}
		t.fibers[ev.FiberID] = fi
	}

	switch ev.Kind {
	case model.EventFiberStart:
		fi.StartedAt = ev.At
		fi.State = model.StateRunnable
	case model.EventMount:
		fi.Mounts++
		fi.CarrierHistory = append(fi.CarrierHistory, ev.Carrier)
		fi.State = model.StateMounted
	case model.EventUnmount:
		fi.State = model.StateUnmounted
	case model.EventPinned:
		fi.PinnedSpans++
		fi.PinnedTotal += ev.Span
	case model.EventFiberEnd:
		fi.EndedAt = ev.At
		fi.State = model.StateDone
	}
}

// Fibers returns the tracked fibers with derived fields filled in.
func (t *Tracker) Fibers() map[uint64]*model.FiberInfo {
	out := make(map[uint64]*model.FiberInfo, len(t.fibers))
	for id, fi := range t.fibers {
		seen := make(map[int]struct{}, len(fi.CarrierHistory))
		for _, c := range fi.CarrierHistory {
			seen[c] = struct{}{}
		}
		fi.DistinctCarriers = len(seen)
		out[id] = fi
	}
	return out
}

// TrackAll is a convenience that replays a full event slice.
func TrackAll(events []model.Event) map[uint64]*model.FiberInfo {
	t := NewTracker()
	for _, ev := range events {
		t.Apply(ev)
	}
	return t.Fibers()
}
