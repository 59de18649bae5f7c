package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the watch dashboard
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor   = lipgloss.Color("#43BF6D") // Green - live channels
	ErrorColor     = lipgloss.Color("#FF5555") // Red - errors
	WarningColor   = lipgloss.Color("#FFA500") // Orange - stale channels
	MutedColor     = lipgloss.Color("#626262") // Gray - secondary info
	TextColor      = lipgloss.Color("#FFFFFF") // White - main content
	HighlightColor = lipgloss.Color("#AD8EE6") // Light purple - selection
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	// TitleStyle is for the dashboard title bar
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(1)

	// AddrStyle is for the server address in the title bar
	AddrStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	// TableHeaderStyle is for the channel table header row
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Bold(true)

	// LiveRowStyle is for channels updated recently
	LiveRowStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// StaleRowStyle is for channels with no recent updates
	StaleRowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// ErrorStyle is for connection error text
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			PaddingLeft(1)

	// EmptyStyle is for the "no channels yet" placeholder
	EmptyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			PaddingLeft(1)

	// SpinnerStyle is for the connecting spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)
)

// BorderStyle returns the outer dashboard border.
func BorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// GetTerminalWidth returns the current terminal width, with fallback.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
