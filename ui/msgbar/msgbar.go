package msgbar

import (
	"sagebot/packet"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Sent is a line the station transmitted.
type Sent string

// Model holds the traffic log: the most recent lines sent and heard,
// newest at the bottom.
type Model struct {
	width  int
	height int
	lines  []string
}

// New creates a traffic log of the given total height (including border)
func New(height int) Model {
	return Model{
		width:  80,
		height: height,
		lines:  make([]string, 0, height),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) capacity() int {
	n := m.height - 2 // borders
	if n < 1 {
		n = 1
	}
	return n
}

func (m *Model) add(line string) {
	m.lines = append(m.lines, line)
	if extra := len(m.lines) - m.capacity(); extra > 0 {
		m.lines = append(m.lines[:0], m.lines[extra:]...)
	}
}

// Lines returns what is currently kept, oldest first.
func (m Model) Lines() []string {
	return m.lines
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case *packet.Packet:
		// server chatter stays in the log file
		if msg.Kind == packet.KindComment {
			return m, nil
		}
		m.add("RX " + msg.Kind.String() + " " + msg.Raw)
	case Sent:
		m.add("TX " + string(msg))
	}
	return m, nil
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	contentWidth := m.width - 2 - 2 // -border, -padding
	if contentWidth < 0 {
		contentWidth = 0
	}

	var b strings.Builder
	for i, line := range m.lines {
		if len(line) > contentWidth {
			line = line[:contentWidth]
		}
		b.WriteString(line)
		if i < len(m.lines)-1 {
			b.WriteRune('\n')
		}
	}
	return style.Render(b.String())
}
