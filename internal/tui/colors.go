package tui

import "github.com/charmbracelet/lipgloss"

// Color constants for the opsportal terminal theme
const (
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2"
	ColorSecondaryText = "#B1B8C7"
	ColorDisabledText  = "#6D7383"
	ColorHelpText      = "240"

	// Accent Colors
	ColorAccentMain   = "#7C3AED"
	ColorAccentBright = "#A78BFA"

	// State Colors
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
	ColorWarning = "#F59E0B"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAccentBright)).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Width(10)

	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1)
)
