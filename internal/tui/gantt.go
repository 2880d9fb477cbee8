// Package tui renders a completed run's Timeline as a text Gantt chart
// using Bubble Tea, for the demo CLI's `ignite timeline` command.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/randalmurphal/ignition/recording"
)

// Styles holds the Gantt view's color palette.
type Styles struct {
	Title     lipgloss.Style
	Succeeded lipgloss.Style
	Failed    lipgloss.Style
	TimedOut  lipgloss.Style
	Skipped   lipgloss.Style
	Cancelled lipgloss.Style
	Marker    lipgloss.Style
	Subtle    lipgloss.Style
}

// DefaultStyles returns the Gantt view's default styling.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1),
		Succeeded: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		TimedOut:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Skipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Cancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("93")),
		Marker:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Model is a read-only Bubble Tea model over a finished Recording and
// Timeline; it quits on any keypress.
type Model struct {
	rec    recording.Recording
	tl     recording.Timeline
	styles Styles
	width  int
}

// New constructs a Gantt Model over a completed recording and timeline.
func New(rec recording.Recording, tl recording.Timeline) Model {
	return Model{rec: rec, tl: tl, styles: DefaultStyles(), width: 80}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("ignition timeline"))
	b.WriteString("\n")

	barWidth := m.width - 24
	if barWidth < 10 {
		barWidth = 10
	}
	total := m.rec.TotalDurationMs
	if total <= 0 {
		total = 1
	}

	for _, sig := range m.rec.Signals {
		style := m.statusStyle(sig.Status)
		label := fmt.Sprintf("%-16.16s", sig.Name)

		startCol := int(sig.StartMs / total * float64(barWidth))
		endCol := int(sig.EndMs / total * float64(barWidth))
		if endCol <= startCol {
			endCol = startCol + 1
		}
		if endCol > barWidth {
			endCol = barWidth
		}

		bar := strings.Repeat(" ", startCol) + style.Render(strings.Repeat("█", endCol-startCol))
		b.WriteString(m.styles.Subtle.Render(label))
		b.WriteString(bar)
		b.WriteString(fmt.Sprintf(" %s (%.0fms)\n", sig.Status, sig.DurationMs))
	}

	for _, band := range m.tl.StageBands {
		b.WriteString(m.styles.Marker.Render(fmt.Sprintf("stage %d: %.0fms-%.0fms\n", band.Stage, band.StartMs, band.EndMs)))
	}

	b.WriteString(m.styles.Subtle.Render(fmt.Sprintf("\ntotal %.0fms · max concurrency %d · press any key to exit\n", m.rec.TotalDurationMs, m.tl.MaxConcurrency)))
	return b.String()
}

func (m Model) statusStyle(status string) lipgloss.Style {
	switch status {
	case "Succeeded":
		return m.styles.Succeeded
	case "Failed":
		return m.styles.Failed
	case "TimedOut":
		return m.styles.TimedOut
	case "Skipped":
		return m.styles.Skipped
	case "Cancelled":
		return m.styles.Cancelled
	default:
		return m.styles.Subtle
	}
}
