package ui

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	ColorBorder    = lipgloss.Color("#3B4252")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorText      = lipgloss.Color("#ECEFF4")
	ColorMuted     = lipgloss.Color("#7B8394")
	ColorOk        = lipgloss.Color("#A3BE8C")
	ColorWarning   = lipgloss.Color("#EBCB8B")
	ColorCritical  = lipgloss.Color("#BF616A")
	ColorBarFilled = "#88C0D0"
	ColorBarEmpty  = "#3B4252"
)

// Usage thresholds for bar colouring, in percent.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	ActiveTabStyle = TabStyle.
			Foreground(ColorAccent).
			Bold(true).
			Underline(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	OkStyle = lipgloss.NewStyle().
		Foreground(ColorOk)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	CriticalStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)
)

// healthStyle colours a health label.
func healthStyle(label string) lipgloss.Style {
	switch label {
	case "ok":
		return OkStyle
	case "stale", "waiting":
		return WarningStyle
	default:
		return CriticalStyle
	}
}

// usageStyle colours a percentage by severity.
func usageStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= CriticalThreshold:
		return CriticalStyle
	case percent >= WarningThreshold:
		return WarningStyle
	default:
		return OkStyle
	}
}
