package sidebar

import (
	"fmt"
	"sagebot/device/aprsis"
	"sagebot/packet"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const labelWidth = 10

// Model shows session counters
type Model struct {
	width  int
	height int
	status aprsis.Status
	now    time.Time
}

// New creates a new sidebar model
func New() Model {
	return Model{
		width:  28,
		height: 16,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetStatus replaces the counters; now is used for the relative times.
func (m *Model) SetStatus(st aprsis.Status, now time.Time) {
	m.status = st
	m.now = now
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// rows renders the counters as label/value pairs.
func (m Model) rows() [][2]string {
	st := m.status
	rows := [][2]string{
		{string(st.State), humanize.RelTime(st.Since, m.now, "ago", "from now")},
		{"connects", humanize.Comma(int64(st.Connects))},
		{"sent", humanize.Comma(int64(st.Sent))},
	}
	for k := packet.KindBulletin; int(k) < packet.NumKinds; k++ {
		rows = append(rows, [2]string{k.String(), humanize.Comma(int64(st.Received[k]))})
	}
	last := "never"
	if !st.LastBulletinAt.IsZero() {
		last = humanize.RelTime(st.LastBulletinAt, m.now, "ago", "from now")
	}
	rows = append(rows, [2]string{"last BLN", last})
	return rows
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	inner := m.width - 2 - 2 // -2 border, -2 padding
	if inner < 0 {
		inner = 0
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Width(inner).
		Render("Session")

	var b strings.Builder
	b.WriteString(header)

	contentHeight := (m.height - 2) - 1
	valueWidth := max(inner-labelWidth, 0)
	rows := m.rows()
	for i, r := range rows {
		if i >= contentHeight {
			break
		}
		b.WriteRune('\n')
		b.WriteString(fmt.Sprintf("%-*s%*.*s", labelWidth, r[0], valueWidth, valueWidth, r[1]))
	}
	if m.status.LastBulletin != "" && contentHeight > len(rows)+1 {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Italic(true).Width(inner).Render(m.status.LastBulletin))
	}
	return style.Render(b.String())
}
