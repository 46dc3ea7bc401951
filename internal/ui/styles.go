// Package ui provides consistent styling and terminal feedback for the waydo CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary   = lipgloss.Color("39")  // Bright blue
	ColorSecondary = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
	ColorMuted  = lipgloss.Color("238") // Dark gray
)

var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)
)

// Spinner frames
var SpinnerDot = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
)

func FormatSuccess(msg string) string {
	return SuccessStyle.Render(IconSuccess) + " " + msg
}

func FormatError(msg string) string {
	return ErrorStyle.Render(IconError) + " " + msg
}

func FormatWarning(msg string) string {
	return WarningStyle.Render(IconWarning) + " " + msg
}

// FormatKeyValue renders an aligned "key: value" line.
func FormatKeyValue(key string, width int, value string) string {
	pad := width - lipgloss.Width(key)
	if pad < 0 {
		pad = 0
	}
	return KeyStyle.Render(key) + ":" + strings.Repeat(" ", pad+1) + TextStyle.Render(value)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int) string {
	if width <= 0 {
		width = 50
	}
	return SubtleStyle.Render(strings.Repeat("─", width))
}
