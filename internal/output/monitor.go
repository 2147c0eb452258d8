package output

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fiberlab/fiberlab/internal/analyzer"
	"github.com/fiberlab/fiberlab/internal/model"
	"github.com/fiberlab/fiberlab/internal/recorder"
	"github.com/fiberlab/fiberlab/internal/stats"
)

var (
	monitorBaseStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))

	monitorHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type monitorTickMsg time.Time

type monitorDoneMsg struct{ err error }

// MonitorModel is the bubbletea model showing live carrier and fiber
// stats from a recorder while a workload runs.
type MonitorModel struct {
	rec      *recorder.Recorder
	done     <-chan error
	table    table.Model
	summary  *model.RunSummary
	started  time.Time
	finished bool
	runErr   error
}

// NewMonitorModel creates a monitor over rec; done delivers the
// workload's completion.
func NewMonitorModel(rec *recorder.Recorder, done <-chan error) MonitorModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithColumns([]table.Column{
			{Title: "Carrier", Width: 9},
			{Title: "Mounts", Width: 8},
			{Title: "Fibers", Width: 8},
			{Title: "Pinned", Width: 12},
		}),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("#027B6E")).
		Bold(true)
	t.SetStyles(s)

	return MonitorModel{
		rec:     rec,
		done:    done,
		table:   t,
		started: time.Now(),
	}
}

func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTick(), waitForDone(m.done))
}

func monitorTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func waitForDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return monitorDoneMsg{err: <-done}
	}
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case monitorTickMsg:
		m.refresh()
		if m.finished {
			return m, nil
		}
		return m, monitorTick()

	case monitorDoneMsg:
		m.runErr = msg.err
		m.finished = true
		m.refresh()
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh recomputes the summary from the recorder's current events.
func (m *MonitorModel) refresh() {
	summary := analyzer.Analyze(stats.NewAggregator(m.rec.Events()).Summary())
	m.summary = summary

	rows := make([]table.Row, 0, len(summary.Carriers))
	for _, cs := range summary.Carriers {
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", cs.Carrier),
			fmt.Sprintf("%d", cs.Mounts),
			fmt.Sprintf("%d", cs.DistinctFibers),
			FormatDuration(cs.PinnedTime),
		})
	}
	m.table.SetRows(rows)
}

func (m MonitorModel) View() string {
	banner := titleStyle.Render(" LIVE CARRIER MONITOR ")

	status := "running"
	if m.finished {
		if m.runErr != nil {
			status = dangerStyle.Render("failed: " + m.runErr.Error())
		} else {
			status = successStyle.Render("finished")
		}
	}

	statsLine := fmt.Sprintf("\n Elapsed: %s | Events: %d | Status: %s\n",
		FormatDuration(time.Since(m.started).Truncate(time.Millisecond)),
		m.rec.Len(),
		status)

	var detail string
	if m.summary != nil {
		detail = fmt.Sprintf(" Fibers: %d started, %d finished | Peak mounted: %d | Pinned: %s\n",
			m.summary.FibersStarted, m.summary.FibersFinished,
			m.summary.PeakMounted, FormatDuration(m.summary.PinnedTotal))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		banner,
		statsLine,
		detail,
		monitorBaseStyle.Render(m.table.View()),
		monitorHelpStyle.Render(" • q: quit • the table updates while the workload runs"),
	)
}

// RunMonitor drives the monitor TUI until the user quits. The caller is
// responsible for having started the workload whose completion arrives
// on done.
func RunMonitor(rec *recorder.Recorder, done <-chan error) error {
	m := NewMonitorModel(rec, done)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}
