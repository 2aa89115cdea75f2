package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ade80"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af")).PaddingLeft(2)
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

type doneMsg struct {
	details []string
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	title   string
	started time.Time
	frame   int
	run     tea.Cmd
	cancel  context.CancelFunc
	done    bool
	details []string
	err     error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.run)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tickCmd()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	elapsed := time.Since(m.started).Round(100 * time.Millisecond)
	switch {
	case !m.done:
		fmt.Fprintf(&b, "%s %s %s\n", spinnerFrames[m.frame%len(spinnerFrames)], titleStyle.Render(m.title), detailStyle.Render(elapsed.String()))
	case m.err != nil:
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render("✗"), titleStyle.Render(m.title))
	default:
		fmt.Fprintf(&b, "%s %s %s\n", okStyle.Render("✓"), titleStyle.Render(m.title), detailStyle.Render(elapsed.String()))
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render(d))
		b.WriteByte('\n')
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}

// Run executes fn behind a spinner and returns what fn returned. Pressing
// ctrl+c cancels the context handed to fn.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newModel(title, cancel, func() tea.Msg {
		details, err := fn(ctx)
		return doneMsg{details: details, err: err}
	})
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("run ui: %w", err)
	}
	fm := final.(model)
	return fm.details, fm.err
}

func newModel(title string, cancel context.CancelFunc, run tea.Cmd) model {
	return model{title: title, started: time.Now(), cancel: cancel, run: run}
}
