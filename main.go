package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sagebot/config"
	"sagebot/device/aprsis"
	"sagebot/log"
	"sagebot/metrics"
	"sagebot/ui/header"
	"sagebot/ui/msgbar"
	"sagebot/ui/sidebar"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
)

// --- Constants for Layout ---
const (
	sidebarWidth = 28
	msgbarHeight = 9
)

// pollMsg asks the model to poll the client once
type pollMsg time.Time

// model holds the application's state
type model struct {
	width  int
	height int
	conf   config.Config
	st     *station

	headerModel  header.Model
	msgbarModel  msgbar.Model
	sidebarModel sidebar.Model
}

// initialModel creates the starting model
func initialModel(conf config.Config, st *station) model {
	return model{
		width:        80,
		height:       24,
		conf:         conf,
		st:           st,
		headerModel:  header.New(conf.Station.Callsign, conf.Addr()),
		msgbarModel:  msgbar.New(msgbarHeight),
		sidebarModel: sidebar.New(),
	}
}

// tick schedules the next poll
func (m model) tick() tea.Cmd {
	return tea.Tick(m.conf.Schedule.PollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		headerCmd  tea.Cmd
		msgbarCmd  tea.Cmd
		sidebarCmd tea.Cmd
		cmds       []tea.Cmd
	)

	switch msg := msg.(type) {
	case pollMsg:
		r := m.st.client.Poll(context.Background())
		m.headerModel.SetState(r.State)
		for _, pkt := range r.Received {
			m.msgbarModel, msgbarCmd = m.msgbarModel.Update(pkt)
			cmds = append(cmds, msgbarCmd)
		}
		for _, line := range r.Sent {
			m.msgbarModel, msgbarCmd = m.msgbarModel.Update(msgbar.Sent(line))
			cmds = append(cmds, msgbarCmd)
		}
		m.sidebarModel.SetStatus(m.st.client.Status(), time.Time(msg))
		cmds = append(cmds, m.tick())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 1
		mainHeight := m.height - headerHeight - msgbarHeight
		if mainHeight < 3 {
			mainHeight = 3
		}

		m.headerModel, headerCmd = m.headerModel.Update(tea.WindowSizeMsg{Width: m.width, Height: headerHeight})
		m.sidebarModel, sidebarCmd = m.sidebarModel.Update(tea.WindowSizeMsg{Width: sidebarWidth, Height: mainHeight})
		m.msgbarModel, msgbarCmd = m.msgbarModel.Update(tea.WindowSizeMsg{Width: m.width, Height: msgbarHeight})
		cmds = append(cmds, headerCmd, sidebarCmd, msgbarCmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	return m, tea.Batch(cmds...)
}

// scheduleView shows local time and the state of today's two slots.
func (m model) scheduleView(width, height int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(width-2).
		Height(height-2).
		Padding(0, 1)

	mark := func(sent bool) string {
		if sent {
			return "sent"
		}
		return "pending"
	}
	now := m.st.clock.Now().In(m.st.location)
	flags := m.st.scheduler.Flags()
	body := fmt.Sprintf("%s\n\nmorning %s  %s\nevening %s  %s",
		now.Format("Mon 02 Jan 15:04:05 MST"),
		m.conf.Schedule.Morning, mark(flags.MorningSent),
		m.conf.Schedule.Evening, mark(flags.EveningSent),
	)
	return style.Render(body)
}

func (m model) View() string {
	mainHeight := m.height - 1 - msgbarHeight
	if mainHeight < 3 {
		mainHeight = 3
	}
	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		m.sidebarModel.View(),
		m.scheduleView(m.width-sidebarWidth, mainHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerModel.View(),
		middle,
		m.msgbarModel.View(),
	)
}

// runHeadless polls until ctx is cancelled.
func runHeadless(ctx context.Context, st *station, interval time.Duration, logger log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := aprsis.StateDisconnected
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			r := st.client.Poll(ctx)
			if r.State != last {
				logger.Info("state", "from", last, "to", r.State)
				last = r.State
			}
		}
	}
}

func main() {
	configPath := pflag.StringP("config", "c", "config.toml", "path to the configuration file")
	headless := pflag.Bool("headless", false, "run without the terminal UI")
	logLevel := pflag.String("log-level", "", "override [log] level (debug, info, warn, error)")
	pflag.Parse()

	conf, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *headless {
		conf.UI.Enabled = false
	}

	logOpts := log.NewOptions()
	logOpts.Level = conf.Log.Level
	if *logLevel != "" {
		logOpts.Level = *logLevel
	}
	logOpts.Format = conf.Log.Format
	logOpts.Name = "sagebot"
	switch {
	case conf.Log.File != "":
		logOpts.OutputPaths = []string{conf.Log.File}
	case conf.UI.Enabled:
		// the terminal belongs to the UI
		logOpts.OutputPaths = []string{"sagebot.log"}
	}
	if err := log.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logger := log.Std()
	defer logger.Sync()

	st, err := newStation(conf, logger)
	if err != nil {
		logger.Error(err, "station setup failed")
		fmt.Fprintf(os.Stderr, "Station setup failed: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	logger.Info("starting", "call", conf.Station.Callsign, "server", conf.Addr(),
		"morning", conf.Schedule.Morning, "evening", conf.Schedule.Evening, "timezone", conf.Schedule.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, conf.Metrics.Listen, logger); err != nil {
				logger.Error(err, "metrics server stopped")
			}
		}()
	}

	if !conf.UI.Enabled {
		runHeadless(ctx, st, conf.Schedule.PollInterval, logger)
		return
	}

	p := tea.NewProgram(initialModel(conf, st), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error(err, "ui stopped")
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
	}
}
