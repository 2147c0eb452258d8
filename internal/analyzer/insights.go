package analyzer

import (
	"fmt"

	"github.com/fiberlab/fiberlab/internal/model"
	"github.com/fiberlab/fiberlab/internal/stats"
)

// NarrativeInsight is a high-level human-readable observation about a
// recorded run.
type NarrativeInsight struct {
	Title       string
	Observation string
	Suggestion  string
	Severity    string // info, warning, critical
}

// GenerateInsights turns a summary into narrative observations.
func GenerateInsights(summary *model.RunSummary) []NarrativeInsight {
	var insights []NarrativeInsight

	if share := stats.PinnedShare(summary); share > 0.25 {
		insights = append(insights, NarrativeInsight{
			Title: "Carrier Pinning Detected",
			Observation: fmt.Sprintf("Fibers held their carriers across blocking calls for %.1f%% of the run (%d pinned spans).",
				share*100, summary.PinnedEvents),
			Suggestion: "Blocking inside a PinnedMutex section keeps the carrier out of the pool. Switch the critical section to the scheduler-aware Mutex, or move the blocking call outside the lock.",
			Severity:   "critical",
		})
	}

	if summary.PeakMounted > 0 && len(summary.Carriers) > summary.PeakMounted {
		insights = append(insights, NarrativeInsight{
			Title: "Idle Carriers",
			Observation: fmt.Sprintf("Only %d of %d carriers were ever mounted simultaneously.",
				summary.PeakMounted, len(summary.Carriers)),
			Suggestion: "The workload never saturated the pool; a smaller pool would behave identically.",
			Severity:   "info",
		})
	}

	if summary.FibersFinished < summary.FibersStarted {
		insights = append(insights, NarrativeInsight{
			Title: "Unfinished Fibers",
			Observation: fmt.Sprintf("%d fibers were still live when the recording stopped.",
				summary.FibersStarted-summary.FibersFinished),
			Suggestion: "Either the recording window is too short or some fibers are not observing cancellation at their blocking points.",
			Severity:   "warning",
		})
	}

	if !summary.HasSchedulingIssues && summary.FibersStarted > 0 {
		insights = append(insights, NarrativeInsight{
			Title:       "Healthy Carrier Pool",
			Observation: "Mount activity is spread across the pool and no pinning was observed.",
			Suggestion:  "Nothing to change; fibers are yielding their carriers at every suspension point.",
			Severity:    "info",
		})
	}

	return insights
}
