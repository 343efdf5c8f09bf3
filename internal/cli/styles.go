package cli

import "github.com/charmbracelet/lipgloss"

var (
	brandPrimary = lipgloss.Color("#2563EB")
	brandAccent  = lipgloss.Color("#10B981")
	brandWarning = lipgloss.Color("#F59E0B")
	brandError   = lipgloss.Color("#EF4444")
	textMuted    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brandAccent).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(brandError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(brandWarning)

	dimStyle = lipgloss.NewStyle().
			Foreground(textMuted)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brandPrimary).
			Padding(0, 2)
)
