package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Select lets the user pick one of options with the arrow keys and returns
// its index.
func Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to select")
	}
	p := tea.NewProgram(selectModel{title: title, options: options}, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return -1, err
	}
	m, ok := finalModel.(selectModel)
	if !ok {
		return -1, fmt.Errorf("internal error: invalid model type")
	}
	if !m.chosen {
		return -1, ErrCancelled
	}
	return m.cursor, nil
}

type selectModel struct {
	title   string
	options []string
	cursor  int
	chosen  bool
	done    bool
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.done = true
		return m, tea.Quit
	case "enter":
		m.chosen = true
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m selectModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render(m.title) + "\n\n")
	for i, opt := range m.options {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(opt) + "\n")
			continue
		}
		b.WriteString("  " + opt + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("↑/↓ to move, enter to select, esc to cancel") + "\n")
	return b.String()
}
