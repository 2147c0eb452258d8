package stats

import (
	"testing"
	"time"

	"github.com/fiberlab/fiberlab/internal/model"
)

func eventLog() []model.Event {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	return []model.Event{
		{Kind: model.EventFiberStart, FiberID: 1, Carrier: -1, At: at(0)},
		{Kind: model.EventFiberStart, FiberID: 2, Carrier: -1, At: at(0)},
		{Kind: model.EventMount, FiberID: 1, Carrier: 0, At: at(1)},
		{Kind: model.EventMount, FiberID: 2, Carrier: 1, At: at(1)},
		{Kind: model.EventUnmount, FiberID: 1, Carrier: 0, At: at(5)},
		{Kind: model.EventMount, FiberID: 1, Carrier: 1, At: at(10)},
		{Kind: model.EventPinned, FiberID: 2, Carrier: 1, At: at(10), Span: 20 * time.Millisecond},
		{Kind: model.EventUnmount, FiberID: 1, Carrier: 1, At: at(30)},
		{Kind: model.EventFiberEnd, FiberID: 1, Carrier: 1, At: at(30)},
		{Kind: model.EventUnmount, FiberID: 2, Carrier: 1, At: at(40)},
		{Kind: model.EventFiberEnd, FiberID: 2, Carrier: 1, At: at(40)},
	}
}

func TestSummaryAggregatesTheRun(t *testing.T) {
	t.Parallel()

	s := NewAggregator(eventLog()).Summary()

	if s.FibersStarted != 2 || s.FibersFinished != 2 {
		t.Errorf("started/finished = %d/%d, want 2/2", s.FibersStarted, s.FibersFinished)
	}
	if s.TotalMounts != 3 || s.TotalUnmounts != 3 {
		t.Errorf("mounts/unmounts = %d/%d, want 3/3", s.TotalMounts, s.TotalUnmounts)
	}
	if s.PeakMounted != 2 {
		t.Errorf("peak mounted = %d, want 2", s.PeakMounted)
	}
	if s.PinnedEvents != 1 || s.PinnedTotal != 20*time.Millisecond {
		t.Errorf("pinned = %d/%v, want 1/20ms", s.PinnedEvents, s.PinnedTotal)
	}
	if s.WallTime != 40*time.Millisecond {
		t.Errorf("wall time = %v, want 40ms", s.WallTime)
	}

	if len(s.Carriers) != 2 {
		t.Fatalf("got %d carriers, want 2", len(s.Carriers))
	}
	c1 := s.Carriers[1]
	if c1.Carrier != 1 || c1.Mounts != 2 || c1.DistinctFibers != 2 {
		t.Errorf("carrier 1 = %+v", c1)
	}
	if c1.PinnedTime != 20*time.Millisecond {
		t.Errorf("carrier 1 pinned = %v, want 20ms", c1.PinnedTime)
	}

	if len(s.TopPinned) != 1 || s.TopPinned[0].ID != 2 {
		t.Fatalf("TopPinned = %+v, want fiber 2 only", s.TopPinned)
	}
}

func TestSummaryOfEmptyLog(t *testing.T) {
	t.Parallel()

	s := NewAggregator(nil).Summary()
	if s.FibersStarted != 0 || s.WallTime != 0 || len(s.Carriers) != 0 {
		t.Errorf("empty log produced %+v", s)
	}
	if PinnedShare(s) != 0 {
		t.Error("PinnedShare of empty run != 0")
	}
}

func TestPinnedShare(t *testing.T) {
	t.Parallel()

	s := NewAggregator(eventLog()).Summary()
	// 20ms pinned over 40ms of wall time on 2 carriers.
	want := 0.25
	if got := PinnedShare(s); got < want-0.001 || got > want+0.001 {
		t.Errorf("PinnedShare = %v, want %v", got, want)
	}
}
