// Package stats turns recorded runtime events into aggregate run
// summaries.
package stats

import (
	"sort"
	"time"

	"github.com/fiberlab/fiberlab/internal/model"
	"github.com/fiberlab/fiberlab/internal/recorder"
)

// Aggregator computes a RunSummary from an ordered event log.
type Aggregator struct {
	events []model.Event
}

// NewAggregator creates an aggregator over events.
func NewAggregator(events []model.Event) *Aggregator {
	return &Aggregator{events: events}
}

// Summary computes aggregate metrics for the run.
func (a *Aggregator) Summary() *model.RunSummary {
	summary := &model.RunSummary{}
	if len(a.events) == 0 {
		return summary
	}

	summary.WallTime = a.events[len(a.events)-1].At.Sub(a.events[0].At)

	mounted := 0
	carrierStats := make(map[int]*model.CarrierStats)
	carrierFibers := make(map[int]map[uint64]struct{})

	for _, ev := range a.events {
		switch ev.Kind {
		case model.EventFiberStart:
			summary.FibersStarted++
		case model.EventFiberEnd:
			summary.FibersFinished++
		case model.EventMount:
			summary.TotalMounts++
			mounted++
			if mounted > summary.PeakMounted {
				summary.PeakMounted = mounted
			}
			cs, ok := carrierStats[ev.Carrier]
			if !ok {
				cs = &model.CarrierStats{Carrier: ev.Carrier}
				carrierStats[ev.Carrier] = cs
				carrierFibers[ev.Carrier] = make(map[uint64]struct{})
			}
			cs.Mounts++
			carrierFibers[ev.Carrier][ev.FiberID] = struct{}{}
		case model.EventUnmount:
			summary.TotalUnmounts++
			if mounted > 0 {
				mounted--
			}
		case model.EventPinned:
			summary.PinnedEvents++
			summary.PinnedTotal += ev.Span
			if cs, ok := carrierStats[ev.Carrier]; ok {
				cs.PinnedTime += ev.Span
			}
		}
	}

	summary.Carriers = make([]model.CarrierStats, 0, len(carrierStats))
	for c, cs := range carrierStats {
		cs.DistinctFibers = len(carrierFibers[c])
		summary.Carriers = append(summary.Carriers, *cs)
	}
	sort.Slice(summary.Carriers, func(i, j int) bool {
		return summary.Carriers[i].Carrier < summary.Carriers[j].Carrier
	})

	summary.TopPinned = a.topPinned(10)

	return summary
}

// topPinned returns up to n fibers ordered by pinned carrier time.
func (a *Aggregator) topPinned(n int) []*model.FiberInfo {
	fibers := recorder.TrackAll(a.events)

	items := make([]*model.FiberInfo, 0, len(fibers))
	for _, fi := range fibers {
		if fi.PinnedTotal > 0 {
			items = append(items, fi)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].PinnedTotal != items[j].PinnedTotal {
			return items[i].PinnedTotal > items[j].PinnedTotal
		}
		return items[i].ID < items[j].ID
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

// PinnedShare returns the fraction of wall time spent pinned, summed
// over carriers. Zero wall time yields zero.
func PinnedShare(summary *model.RunSummary) float64 {
	if summary.WallTime <= 0 {
		return 0
	}
	return float64(summary.PinnedTotal) / float64(summary.WallTime*time.Duration(maxInt(1, len(summary.Carriers))))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
