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
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(2)
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg struct{}

type doneMsg struct {
	details []string
	err     error
}

type runModel struct {
	title   string
	frame   int
	done    bool
	details []string
	err     error
	cancel  context.CancelFunc
}

func (m *runModel) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done, m.details, m.err = true, msg.details, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *runModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	if !m.done {
		b.WriteString(spinnerFrames[m.frame] + " running...\n")
		return docStyle.Render(b.String())
	}
	b.WriteString(Render(m.details, m.err))
	return docStyle.Render(b.String())
}

// Render formats a finished run; used by the TUI and by callers that print
// the same summary without one.
func Render(details []string, err error) string {
	var b strings.Builder
	for _, d := range details {
		b.WriteString(detailStyle.Render("• "+d) + "\n")
	}
	if err != nil {
		b.WriteString(failStyle.Render(fmt.Sprintf("✗ %v", err)) + "\n")
	} else {
		b.WriteString(okStyle.Render("✓ all checks passed") + "\n")
	}
	return b.String()
}

// Run executes fn behind a spinner and returns its result once it finishes.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	m := &runModel{title: title, cancel: cancel}
	p := tea.NewProgram(m)
	go func() {
		details, err := fn(ctx)
		p.Send(doneMsg{details: details, err: err})
	}()
	if _, err := p.Run(); err != nil {
		return nil, err
	}
	return m.details, m.err
}
