package header

import (
	"sagebot/device/aprsis"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the header's state
type Model struct {
	width    int
	callsign string
	server   string
	state    aprsis.State
}

// New creates a new header model
func New(callsign, server string) Model {
	return Model{
		width:    80, // Default width, will be updated
		callsign: callsign,
		server:   server,
		state:    aprsis.StateDisconnected,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetState records the connection state shown on the right.
func (m *Model) SetState(s aprsis.State) {
	m.state = s
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// stateColor maps the connection state to a background color.
func stateColor(s aprsis.State) lipgloss.Color {
	switch s {
	case aprsis.StateVerified:
		return lipgloss.Color("28") // green
	case aprsis.StateConnected, aprsis.StateLoggedIn:
		return lipgloss.Color("136") // amber
	}
	return lipgloss.Color("124") // red
}

func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color("63")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1).
		Render("SageBot " + m.callsign)

	state := lipgloss.NewStyle().
		Bold(true).
		Background(stateColor(m.state)).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1).
		Render(string(m.state))

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(state)
	if gap < 0 {
		gap = 0
	}
	middle := lipgloss.NewStyle().
		Background(lipgloss.Color("63")).
		Foreground(lipgloss.Color("252")).
		Width(gap).
		Align(lipgloss.Center).
		Render(m.server)

	return lipgloss.JoinHorizontal(lipgloss.Top, title, middle, state)
}
