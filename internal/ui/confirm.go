package ui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Confirm asks a yes/no question. Anything but y or Y declines.
func Confirm(question string) (bool, error) {
	p := tea.NewProgram(confirmModel{question: question}, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := finalModel.(confirmModel)
	if !ok {
		return false, fmt.Errorf("internal error: invalid model type")
	}
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.answer, nil
}

type confirmModel struct {
	question  string
	answer    bool
	done      bool
	cancelled bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	case tea.KeyEnter:
		m.done = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch key.String() {
		case "y", "Y":
			m.answer = true
		default:
			m.answer = false
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n%s %s ", titleStyle.Render(m.question), hintStyle.Render("[y/N]"))
}
