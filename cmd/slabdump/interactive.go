package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// headerLines is the number of lines View renders above the viewport.
const headerLines = 4

type interactiveModel struct {
	res      *result
	view     viewport.Model
	selected int
	perRow   int
	ready    bool
}

func newInteractiveModel(res *result) *interactiveModel {
	return &interactiveModel{res: res, perRow: 16}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "right", "l", "n", "tab":
			if len(m.res.entries) > 0 {
				m.selected = (m.selected + 1) % len(m.res.entries)
				m.refresh()
			}
			return m, nil

		case "left", "h", "p", "shift+tab":
			if len(m.res.entries) > 0 {
				m.selected = (m.selected + len(m.res.entries) - 1) % len(m.res.entries)
				m.refresh()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := max(msg.Height-headerLines-2, 1)
		m.perRow = rowWidth(msg.Width)
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// refresh re-renders the dump and scrolls the selected record into view.
func (m *interactiveModel) refresh() {
	if !m.ready {
		return
	}
	m.view.SetContent(hexDump(m.res.data, m.res.entries, m.selected, m.perRow))
	if len(m.res.entries) == 0 {
		return
	}
	row := int(m.res.entries[m.selected].record.Offset) / m.perRow
	if row < m.view.YOffset || row >= m.view.YOffset+m.view.Height {
		m.view.SetYOffset(row)
	}
}

func (m *interactiveModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.res.header())
	b.WriteString("\n")
	switch {
	case m.res.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.res.err)))
	case len(m.res.entries) == 0:
		b.WriteString("No records")
	default:
		b.WriteString(m.res.describe(m.selected, m.res.entries[m.selected]))
	}
	b.WriteString("\n")
	if len(m.res.entries) > 0 {
		b.WriteString(m.res.summary())
	}
	b.WriteString("\n\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ record • ↑/↓ scroll • q quit"))
	return b.String()
}

func runInteractive(res *result) error {
	p := tea.NewProgram(newInteractiveModel(res), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
