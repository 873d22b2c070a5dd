package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

type taskDoneMsg struct{ err error }

type spinnerModel struct {
	spinner  spinner.Model
	text     string
	run      func() error
	cancel   context.CancelFunc
	err      error
	finished bool
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return taskDoneMsg{err: m.run()} },
	)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Ctrl-C cancels the task; the program exits once the task returns.
		if msg.Type == tea.KeyCtrlC {
			m.text = "cancelling..."
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case taskDoneMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.finished {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), textStyle.Render(m.text))
}

// Spin runs task while showing a spinner on stderr. Ctrl-C cancels the
// context passed to task. Without a terminal the task simply runs.
func Spin(ctx context.Context, text string, task func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return task(ctx)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := spinnerModel{
		spinner: s,
		text:    text,
		run:     func() error { return task(ctx) },
		cancel:  cancel,
	}

	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	fm, ok := finalModel.(spinnerModel)
	if !ok {
		return fmt.Errorf("internal error: invalid model type")
	}
	return fm.err
}
