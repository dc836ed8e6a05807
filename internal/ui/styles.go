package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#EF4444")
	ColorBlue    = lipgloss.Color("#3B82F6")
	ColorGreen   = lipgloss.Color("#22C55E")
	ColorGray    = lipgloss.Color("#6B7280")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorYellow  = lipgloss.Color("#EAB308")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecordingStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ButtonStartStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Background(ColorBlue).
				Padding(0, 2)

	ButtonStopStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorRed).
			Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimGray).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	InterimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecommendationStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorGreen).
				Padding(0, 1)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorBlue).
			Padding(1, 2)

	AlertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorYellow).
			Foreground(ColorYellow).
			Padding(0, 2)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)
