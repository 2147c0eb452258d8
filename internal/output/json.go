package output

import (
	"encoding/json"
	"io"

	"github.com/fiberlab/fiberlab/internal/model"
)

// RunSummaryJSON is the wire form of a run summary.
type RunSummaryJSON struct {
	FibersStarted  int                `json:"fibers_started"`
	FibersFinished int                `json:"fibers_finished"`
	PeakMounted    int                `json:"peak_mounted"`
	TotalMounts    int                `json:"total_mounts"`
	TotalUnmounts  int                `json:"total_unmounts"`
	PinnedEvents   int                `json:"pinned_events"`
	PinnedTotal    string             `json:"pinned_total"`
	WallTime       string             `json:"wall_time"`
	Carriers       []CarrierStatsJSON `json:"carriers"`
	TopPinned      []FiberJSON        `json:"top_pinned_fibers,omitempty"`
	HasIssues      bool               `json:"has_scheduling_issues"`
	Issues         []string           `json:"issues,omitempty"`
}

// CarrierStatsJSON describes one carrier slot.
type CarrierStatsJSON struct {
	Carrier        int    `json:"carrier"`
	Mounts         int    `json:"mounts"`
	DistinctFibers int    `json:"distinct_fibers"`
	PinnedTime     string `json:"pinned_time"`
}

// FiberJSON describes one fiber in JSON output.
type FiberJSON struct {
	ID               uint64 `json:"id"`
	Mounts           int    `json:"mounts"`
	DistinctCarriers int    `json:"distinct_carriers"`
	PinnedSpans      int    `json:"pinned_spans"`
	PinnedTotal      string `json:"pinned_total"`
	State            string `json:"state"`
}

// JSONFormatter renders summaries as indented JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// FormatRunSummary outputs the summary as JSON.
func (f *JSONFormatter) FormatRunSummary(summary *model.RunSummary) error {
	out := RunSummaryJSON{
		FibersStarted:  summary.FibersStarted,
		FibersFinished: summary.FibersFinished,
		PeakMounted:    summary.PeakMounted,
		TotalMounts:    summary.TotalMounts,
		TotalUnmounts:  summary.TotalUnmounts,
		PinnedEvents:   summary.PinnedEvents,
		PinnedTotal:    summary.PinnedTotal.String(),
		WallTime:       summary.WallTime.String(),
		Carriers:       make([]CarrierStatsJSON, 0, len(summary.Carriers)),
		HasIssues:      summary.HasSchedulingIssues,
		Issues:         summary.Issues,
	}
	for _, cs := range summary.Carriers {
		out.Carriers = append(out.Carriers, CarrierStatsJSON{
			Carrier:        cs.Carrier,
			Mounts:         cs.Mounts,
			DistinctFibers: cs.DistinctFibers,
			PinnedTime:     cs.PinnedTime.String(),
		})
	}
	for _, fi := range summary.TopPinned {
		out.TopPinned = append(out.TopPinned, fiberToJSON(fi))
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatFiberDetail outputs one fiber's lifecycle as JSON.
func (f *JSONFormatter) FormatFiberDetail(fi *model.FiberInfo) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(fiberToJSON(fi))
}

func fiberToJSON(fi *model.FiberInfo) FiberJSON {
	return FiberJSON{
		ID:               fi.ID,
		Mounts:           fi.Mounts,
		DistinctCarriers: fi.DistinctCarriers,
		PinnedSpans:      fi.PinnedSpans,
		PinnedTotal:      fi.PinnedTotal.String(),
		State:            fi.State.String(),
	}
}
