package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#1E90FF") // Blue - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - on, success
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - heating, warnings
	IdleColor    = lipgloss.Color("#4FC3F7") // Light blue - heater idle
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 48 // Minimum supported terminal width
	MaxContentWidth  = 80 // Maximum content width before capping
)

// Shared styles
var (
	// TitleStyle is for box titles (e.g., "BESTWAY SPA")
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// SubtitleStyle is for the command or device line under a title
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// LabelStyle is for row labels in cards
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(14)

	// ValueStyle is for row values in cards
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// BigValueStyle is for the water temperature
	BigValueStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	OnStyle      = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	OffStyle     = lipgloss.NewStyle().Foreground(MutedColor)
	HeatingStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	IdleStyle    = lipgloss.NewStyle().Foreground(IdleColor)

	// SuccessTitleStyle is for the success result title
	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	// ErrorTitleStyle is for the error result title
	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// ErrorMessageStyle is for error message text
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// WarningStyle is for stale-data and unavailable notices
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// TroubleshootingStyle is for troubleshooting hints
	TroubleshootingStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Italic(true)

	// HelpStyle is for key binding help
	HelpStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	OnMarker      = "●"
	OffMarker     = "○"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	return clampWidth(width, nil), height
}

// IsTerminal reports whether stdout is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// BoxStyle returns the rounded border used for cards
func BoxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width-2). // Account for border characters
		Padding(0, 1)
}

// RenderDivider creates a horizontal line of the specified width
func RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}
