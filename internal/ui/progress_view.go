// Package ui renders live scan and cleanup progress with bubbletea.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	rprogress "github.com/reclaimd/reclaim/internal/progress"
	"github.com/reclaimd/reclaim/pkg/utils"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// updateMsg wraps a progress update from the reporter channel.
type updateMsg struct {
	update interface{}
}

// doneMsg signals the reporter channel closed or the run completed.
type doneMsg struct{}

// ProgressModel displays scan or cleanup progress until the run reaches a
// terminal phase.
type ProgressModel struct {
	title    string
	reporter *rprogress.Reporter
	updates  <-chan interface{}

	spinner spinner.Model
	bar     progress.Model

	scan  *rprogress.ScanProgress
	clean *rprogress.CleanProgress
	done  bool
}

// NewProgressModel creates a model subscribed to the reporter.
func NewProgressModel(title string, reporter *rprogress.Reporter) *ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &ProgressModel{
		title:    title,
		reporter: reporter,
		updates:  reporter.Subscribe(),
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m *ProgressModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg{update: update}
	}
}

// Update implements tea.Model.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.reporter.Unsubscribe(m.updates)
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 10

	case updateMsg:
		switch u := msg.update.(type) {
		case *rprogress.ScanProgress:
			m.scan = u
			if u.Phase == rprogress.PhaseComplete || u.Phase == rprogress.PhaseError {
				m.done = true
			}
		case *rprogress.CleanProgress:
			m.clean = u
			if u.Phase == rprogress.PhaseComplete || u.Phase == rprogress.PhaseError {
				m.done = true
			}
		}
		if m.done {
			m.reporter.Unsubscribe(m.updates)
			return m, tea.Quit
		}
		return m, m.waitForUpdate()

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	switch {
	case m.clean != nil:
		m.viewClean(&b)
	case m.scan != nil:
		m.viewScan(&b)
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" starting...\n")
	}

	if !m.done {
		b.WriteString(faintStyle.Render("\npress ctrl+c to cancel\n"))
	}

	return b.String()
}

func (m *ProgressModel) viewScan(b *strings.Builder) {
	p := m.scan

	fmt.Fprintf(b, "%s %s %s\n", m.spinner.View(), phaseStyle.Render(phaseLabel(p.Phase)), p.Message)

	if p.Total > 0 {
		ratio := float64(p.Processed) / float64(p.Total)
		b.WriteString(m.bar.ViewAs(ratio))
		fmt.Fprintf(b, "\n%d / %d files", p.Processed, p.Total)
	} else {
		fmt.Fprintf(b, "%d files", p.Processed)
	}

	fmt.Fprintf(b, "  %s\n", faintStyle.Render(elapsed(p.StartTime)))

	if p.Error != nil {
		b.WriteString(failedStyle.Render("error: " + p.Error.Error()))
		b.WriteString("\n")
	}
}

func (m *ProgressModel) viewClean(b *strings.Builder) {
	p := m.clean

	fmt.Fprintf(b, "%s %s\n", m.spinner.View(), phaseStyle.Render(phaseLabel(p.Phase)))

	if p.Total > 0 {
		ratio := float64(p.Done) / float64(p.Total)
		b.WriteString(m.bar.ViewAs(ratio))
		fmt.Fprintf(b, "\n%d / %d items, %s freed", p.Done, p.Total, utils.FormatBytes(p.FreedBytes))
	}
	if p.Failed > 0 {
		b.WriteString(failedStyle.Render(fmt.Sprintf("  %d failed", p.Failed)))
	}
	b.WriteString("\n")

	if p.CurrentPath != "" {
		b.WriteString(faintStyle.Render(truncate(p.CurrentPath, 70)))
		b.WriteString("\n")
	}

	if p.Error != nil {
		b.WriteString(failedStyle.Render("error: " + p.Error.Error()))
		b.WriteString("\n")
	}
}

func phaseLabel(phase rprogress.Phase) string {
	switch phase {
	case rprogress.PhaseSize:
		return "Indexing files"
	case rprogress.PhasePartial:
		return "Comparing file heads"
	case rprogress.PhaseFull:
		return "Hashing candidates"
	case rprogress.PhaseCleaning:
		return "Cleaning"
	case rprogress.PhaseComplete:
		return "Done"
	case rprogress.PhaseError:
		return "Failed"
	default:
		return string(phase)
	}
}

func elapsed(start time.Time) string {
	if start.IsZero() {
		return ""
	}
	return time.Since(start).Round(time.Second).String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}

// Run displays the progress view until the tracked run finishes.
func Run(title string, reporter *rprogress.Reporter) error {
	model := NewProgressModel(title, reporter)
	_, err := tea.NewProgram(model).Run()
	return err
}
