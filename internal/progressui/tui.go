package progressui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

type tickMsg struct {
	completed int
	total     int
	label     string
}

type doneMsg struct{ err error }

type model struct {
	bar       progress.Model
	completed int
	total     int
	label     string
	err       error
	finished  bool
}

func newModel() model {
	return model{bar: progress.New(progress.WithDefaultGradient())}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = v.Width - 4
		return m, nil
	case tickMsg:
		m.completed = v.completed
		m.total = v.total
		m.label = v.label
		return m, nil
	case doneMsg:
		m.err = v.err
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.total == 0 {
		return ""
	}
	pct := float64(m.completed) / float64(m.total)
	line := fmt.Sprintf("%s %d/%d %s\n", m.bar.ViewAs(pct), m.completed, m.total, labelStyle.Render(m.label))
	if m.finished {
		if m.err != nil {
			return line + fmt.Sprintf("failed: %v\n", m.err)
		}
		return line + "done\n"
	}
	return line
}

// TUI is the default interactive ProgressObserver, generalized from the
// teacher's bubbletea-based episode download view.
type TUI struct {
	mu      sync.Mutex
	program *tea.Program
	started bool
}

// NewTUI constructs a TUI observer. Start launches the underlying
// bubbletea program; callers must not reuse a TUI across multiple jobs.
func NewTUI() *TUI {
	return &TUI{}
}

func (t *TUI) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.program = tea.NewProgram(newModel())
	t.started = true
	go func() { _, _ = t.program.Run() }()
	t.program.Send(tickMsg{completed: 0, total: total, label: "starting"})
}

func (t *TUI) Advance(completed, total int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.program.Send(tickMsg{completed: completed, total: total, label: label})
}

func (t *TUI) Done(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.program.Send(doneMsg{err: err})
}
