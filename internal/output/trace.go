package output

import (
	"fmt"
	"sort"

	"github.com/fiberlab/fiberlab/internal/traceparser"
)

// FormatTraceProfile outputs the reduced view of an execution trace.
func (f *Formatter) FormatTraceProfile(profile *traceparser.Profile) error {
	f.Title("EXECUTION TRACE PROFILE")

	f.Section("TOTALS")
	f.Box(
		KV("Goroutines", fmt.Sprintf("%d", len(profile.Goroutines))),
		KV("Running time", FormatDuration(profile.TotalRunning)),
		KV("Blocked time", FormatDuration(profile.TotalBlocked)),
	)

	if len(profile.ByReason) > 0 {
		f.Section("BLOCKED BY REASON")
		reasons := make([]traceparser.BlockReason, 0, len(profile.ByReason))
		for reason := range profile.ByReason {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			return profile.ByReason[reasons[i]] > profile.ByReason[reasons[j]]
		})
		lines := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			lines = append(lines, KV(reason.String(), FormatDuration(profile.ByReason[reason])))
		}
		f.Box(lines...)
	}

	top := profile.TopBlocked(10)
	if len(top) > 0 {
		f.Section("MOST BLOCKED GOROUTINES")
		for _, g := range top {
			f.Stepf("%s blocked %s across %d transitions (ran %s)",
				infoStyle.Render(fmt.Sprintf("goroutine %d", g.ID)),
				dangerStyle.Render(FormatDuration(g.Blocked)),
				g.Transitions,
				FormatDuration(g.Running))
		}
	}

	fmt.Fprintln(f.writer)
	return nil
}
