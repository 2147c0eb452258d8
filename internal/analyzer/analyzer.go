// Package analyzer inspects run summaries for scheduling pathologies.
package analyzer

import (
	"fmt"

	"github.com/fiberlab/fiberlab/internal/model"
	"github.com/fiberlab/fiberlab/internal/stats"
)

// Analyze flags suspicious patterns on the summary in place and
// returns it.
func Analyze(summary *model.RunSummary) *model.RunSummary {
	summary.Issues = summary.Issues[:0]
	summary.HasSchedulingIssues = false

	// Pinned carriers are the dominant scalability hazard.
	if share := stats.PinnedShare(summary); share > 0.25 {
		summary.HasSchedulingIssues = true
		summary.Issues = append(summary.Issues,
			fmt.Sprintf("carriers spent %.0f%% of the run pinned under blocking locks", share*100))
	}

	// One carrier doing most of the mounting means the rest sat idle.
	if len(summary.Carriers) > 1 && summary.TotalMounts > 0 {
		for _, cs := range summary.Carriers {
			if float64(cs.Mounts)/float64(summary.TotalMounts) > 0.75 {
				summary.HasSchedulingIssues = true
				summary.Issues = append(summary.Issues,
					fmt.Sprintf("carrier %d handled %d of %d mounts; the pool is underused",
						cs.Carrier, cs.Mounts, summary.TotalMounts))
				break
			}
		}
	}

	if summary.FibersFinished < summary.FibersStarted {
		summary.HasSchedulingIssues = true
		summary.Issues = append(summary.Issues,
			fmt.Sprintf("%d of %d fibers never finished within the recording",
				summary.FibersStarted-summary.FibersFinished, summary.FibersStarted))
	}

	return summary
}
