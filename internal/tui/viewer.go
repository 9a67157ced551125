// Package tui hosts the interactive plan viewer: a scrollable pane showing the
// rendered plan until the user quits.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const footerHeight = 2

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#888888")).
	MarginTop(1)

// Viewer is the bubbletea model for the plan viewer.
type Viewer struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

// NewViewer builds a viewer for already-rendered content.
func NewViewer(title, content string) *Viewer {
	vp := viewport.New(80, 20)
	vp.SetContent(content)
	return &Viewer{title: title, content: content, viewport: vp}
}

// Init is called once when the program starts.
func (v *Viewer) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.viewport.Width = msg.Width
		v.viewport.Height = max(1, msg.Height-footerHeight)
		v.viewport.SetContent(v.content)
		v.ready = true
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return v, tea.Quit
		}
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the pane and a footer with the scroll position.
func (v *Viewer) View() string {
	footer := footerStyle.Render(fmt.Sprintf("%s · %3.f%% · ↑/↓ scroll · q quit", v.title, v.viewport.ScrollPercent()*100))
	return v.viewport.View() + "\n" + footer
}

// Run opens the viewer on the alternate screen and blocks until it exits.
func Run(title, content string) error {
	p := tea.NewProgram(NewViewer(title, content), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: run viewer: %w", err)
	}
	return nil
}
