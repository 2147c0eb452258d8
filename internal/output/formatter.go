package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fiberlab/fiberlab/internal/analyzer"
	"github.com/fiberlab/fiberlab/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#027B6E")).
			Padding(0, 1).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575")).
			MarginTop(1).
			MarginBottom(1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1).
			MarginBottom(1)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9A9A9A")).
			Bold(true)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF3340")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#56F4FA")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9A9A")).Width(20)
	valStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
)

// Timing is one labelled duration in a comparison table.
type Timing struct {
	Label    string
	Duration time.Duration
	Note     string
}

// Formatter renders human-readable console output.
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates an output formatter.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{writer: w}
}

// Title renders a banner line for a demo or report.
func (f *Formatter) Title(text string) {
	fmt.Fprintln(f.writer, titleStyle.Render(" "+text+" "))
}

// Section renders a section header.
func (f *Formatter) Section(text string) {
	fmt.Fprintln(f.writer, headerStyle.Render(" "+text+" "))
}

// Stepf renders one narration line.
func (f *Formatter) Stepf(format string, args ...any) {
	fmt.Fprintf(f.writer, "  %s\n", fmt.Sprintf(format, args...))
}

// Notef renders a muted aside.
func (f *Formatter) Notef(format string, args ...any) {
	fmt.Fprintln(f.writer, mutedStyle.Render("  "+fmt.Sprintf(format, args...)))
}

// Box renders lines inside a rounded border.
func (f *Formatter) Box(lines ...string) {
	fmt.Fprintln(f.writer, borderStyle.Render(strings.Join(lines, "\n")))
}

// KV formats one aligned label/value pair for use inside a Box.
func KV(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label+":"), valStyle.Render(value))
}

// FormatRunSummary outputs the aggregate view of a recorded run.
func (f *Formatter) FormatRunSummary(summary *model.RunSummary) error {
	f.Title("RECORDING SUMMARY")

	f.Section("RUN")
	f.Box(
		KV("Fibers started", fmt.Sprintf("%d", summary.FibersStarted)),
		KV("Fibers finished", fmt.Sprintf("%d", summary.FibersFinished)),
		KV("Peak mounted", fmt.Sprintf("%d", summary.PeakMounted)),
		KV("Mounts / unmounts", fmt.Sprintf("%d / %d", summary.TotalMounts, summary.TotalUnmounts)),
		fmt.Sprintf("%s %s", labelStyle.Render("Pinned time:"), dangerStyle.Render(FormatDuration(summary.PinnedTotal))),
		KV("Wall time", FormatDuration(summary.WallTime)),
	)

	if len(summary.Carriers) > 0 {
		f.Section("CARRIER MOUNTS")
		rows := []string{subHeaderStyle.Render(fmt.Sprintf("%-10s %-8s %-8s %s", "CARRIER", "MOUNTS", "FIBERS", "PINNED"))}
		for _, cs := range summary.Carriers {
			pinned := mutedStyle.Render(FormatDuration(cs.PinnedTime))
			if cs.PinnedTime > 0 {
				pinned = dangerStyle.Render(FormatDuration(cs.PinnedTime))
			}
			rows = append(rows, fmt.Sprintf("%-10s %-8d %-8d %s",
				infoStyle.Render(fmt.Sprintf("#%d", cs.Carrier)), cs.Mounts, cs.DistinctFibers, pinned))
		}
		f.Box(rows...)
	}

	if len(summary.TopPinned) > 0 {
		f.Section("TOP PINNED FIBERS")
		rows := []string{subHeaderStyle.Render(fmt.Sprintf("%-10s %-8s %s", "FIBER", "SPANS", "PINNED TIME"))}
		for _, fi := range summary.TopPinned {
			rows = append(rows, fmt.Sprintf("%-10s %-8d %s",
				infoStyle.Render(fmt.Sprintf("#%d", fi.ID)), fi.PinnedSpans, dangerStyle.Render(FormatDuration(fi.PinnedTotal))))
		}
		f.Box(rows...)
	}

	if summary.HasSchedulingIssues {
		f.Section("ALERTS")
		var sb strings.Builder
		for i, issue := range summary.Issues {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, issue)
		}
		alert := borderStyle.BorderForeground(lipgloss.Color("#EF3340"))
		fmt.Fprintln(f.writer, alert.Render(strings.TrimSpace(sb.String())))
	}

	return nil
}

// FormatTimings renders a comparison of labelled durations; the slowest
// entry is highlighted against the fastest.
func (f *Formatter) FormatTimings(title string, timings []Timing) {
	if len(timings) == 0 {
		return
	}

	fastest := timings[0].Duration
	slowest := timings[0].Duration
	for _, t := range timings[1:] {
		if t.Duration < fastest {
			fastest = t.Duration
		}
		if t.Duration > slowest {
			slowest = t.Duration
		}
	}

	f.Section(title)
	rows := make([]string, 0, len(timings)+1)
	for _, t := range timings {
		style := valStyle
		switch t.Duration {
		case fastest:
			style = successStyle
		case slowest:
			if slowest != fastest {
				style = dangerStyle
			}
		}
		row := fmt.Sprintf("%s %s", labelStyle.Render(t.Label+":"), style.Render(FormatDuration(t.Duration)))
		if t.Note != "" {
			row += " " + mutedStyle.Render("("+t.Note+")")
		}
		rows = append(rows, row)
	}
	if slowest > 0 && fastest > 0 && slowest != fastest {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("slowest is %.2fx the fastest", float64(slowest)/float64(fastest))))
	}
	f.Box(rows...)
}

// FormatInsights outputs narrative insights generated by the analyzer.
func (f *Formatter) FormatInsights(insights []analyzer.NarrativeInsight) error {
	f.Title("SCHEDULER INSIGHTS")

	if len(insights) == 0 {
		fmt.Fprintln(f.writer, successStyle.Render("\nNo observations. The run looks unremarkable."))
		return nil
	}

	for _, insight := range insights {
		var colorStr string
		switch insight.Severity {
		case "critical":
			colorStr = "#EF3340"
		case "warning":
			colorStr = "#F4D03F"
		default:
			colorStr = "#56F4FA"
		}

		title := lipgloss.NewStyle().Foreground(lipgloss.Color(colorStr)).Bold(true).Render(insight.Title)
		content := fmt.Sprintf("%s\n\n%s %s",
			valStyle.Render(insight.Observation),
			infoStyle.Render("Suggestion:"),
			mutedStyle.Render(insight.Suggestion))

		box := borderStyle.BorderForeground(lipgloss.Color(colorStr)).Render(content)
		fmt.Fprintln(f.writer, "\n"+title)
		fmt.Fprintln(f.writer, box)
	}

	return nil
}

// FormatDuration converts a duration to a short human-readable string.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// GetTitleStyle returns the lipgloss style used for banners.
func GetTitleStyle() lipgloss.Style {
	return titleStyle
}
