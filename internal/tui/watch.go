// Package tui renders the live channel dashboard for `lutbox watch`.
// It subscribes to the WebSocket backend's monitor endpoint and shows
// one row per active LUT channel.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fusetg/lutbox/internal/stream"
)

const liveWindow = 5 * time.Second

// Message types for async monitor events
type connectedMsg struct {
	monitor *stream.Monitor
}

type statusMsg []stream.ChannelStatus

type monitorErrMsg struct {
	err error
}

type retryMsg struct{}

// watchKeyMap defines key bindings for the watch dashboard
type watchKeyMap struct {
	Reconnect key.Binding
	Quit      key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reconnect, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Reconnect, k.Quit}}
}

// WatchModel is the Bubble Tea model for the channel dashboard.
type WatchModel struct {
	Addr string

	monitor  *stream.Monitor
	channels []stream.ChannelStatus
	err      error

	width   int
	height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap
}

// NewWatchModel creates a dashboard model for the monitor at addr.
func NewWatchModel(addr string) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := watchKeyMap{
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return WatchModel{
		Addr:    addr,
		width:   GetTerminalWidth(),
		Spinner: s,
		Help:    help.New(),
		Keys:    keys,
	}
}

// Init starts the spinner and the monitor connection.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, connectCmd(m.Addr))
}

// connectCmd dials the monitor endpoint.
func connectCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		monitor, err := stream.DialMonitor(ctx, addr)
		if err != nil {
			return monitorErrMsg{err: err}
		}
		return connectedMsg{monitor: monitor}
	}
}

// waitForStatus blocks on the next pushed snapshot.
func waitForStatus(monitor *stream.Monitor) tea.Cmd {
	return func() tea.Msg {
		status, err := monitor.Next()
		if err != nil {
			return monitorErrMsg{err: err}
		}
		return statusMsg(status)
	}
}

// retryAfter schedules a reconnect attempt.
func retryAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return retryMsg{}
	})
}

// Update handles messages and updates the model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > MaxContentWidth {
			m.width = MaxContentWidth
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			if m.monitor != nil {
				m.monitor.Close()
			}
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Reconnect):
			if m.monitor != nil {
				m.monitor.Close()
				m.monitor = nil
			}
			m.err = nil
			return m, connectCmd(m.Addr)
		}
		return m, nil

	case connectedMsg:
		m.monitor = msg.monitor
		m.err = nil
		return m, waitForStatus(m.monitor)

	case statusMsg:
		m.channels = msg
		return m, waitForStatus(m.monitor)

	case monitorErrMsg:
		m.err = msg.err
		if m.monitor != nil {
			m.monitor.Close()
			m.monitor = nil
		}
		return m, retryAfter(2 * time.Second)

	case retryMsg:
		if m.monitor == nil {
			return m, connectCmd(m.Addr)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m WatchModel) View() string {
	title := TitleStyle.Render("LUTBOX CHANNELS")
	addr := AddrStyle.Render(m.Addr)
	header := lipgloss.JoinHorizontal(lipgloss.Left, title, addr)

	var body string
	switch {
	case m.err != nil:
		body = ErrorStyle.Render(fmt.Sprintf("disconnected: %v (retrying)", m.err))
	case m.monitor == nil:
		body = lipgloss.JoinHorizontal(lipgloss.Left,
			" ", m.Spinner.View(), " connecting...")
	case len(m.channels) == 0:
		body = EmptyStyle.Render("no channels yet; waiting for LUT updates")
	default:
		body = m.renderTable()
	}

	helpText := m.Help.View(m.Keys)

	content := lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", helpText)
	return BorderStyle(m.width).Render(content)
}

// renderTable renders the per-channel status rows.
func (m WatchModel) renderTable() string {
	headerRow := TableHeaderStyle.Render(fmt.Sprintf(
		" %-24s %6s %9s %8s %10s", "STREAM", "SIZE", "CHANNELS", "FRAMES", "UPDATED"))

	rows := []string{headerRow}
	now := time.Now()
	for _, ch := range m.channels {
		age := now.Sub(ch.UpdatedAt)
		style := StaleRowStyle
		if age < liveWindow {
			style = LiveRowStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf(
			" %-24s %6s %9d %8d %10s",
			ch.Stream,
			fmt.Sprintf("%dx%d", ch.Width, ch.Height),
			ch.Channels,
			ch.Frames,
			formatAge(age),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// formatAge renders an update age compactly.
func formatAge(age time.Duration) string {
	switch {
	case age < time.Second:
		return "now"
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
}

// RunWatch runs the dashboard until the user quits.
func RunWatch(addr string) error {
	model := NewWatchModel(addr)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
