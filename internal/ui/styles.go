package ui

import "github.com/charmbracelet/lipgloss"

// Palette built around the institutional guinda.
const (
	ColorGuinda    = "88"  // Primary accent
	ColorGuindaDim = "52"  // Borders, inactive
	ColorWhite     = "255" // Headers
	ColorGray      = "245" // Labels, metadata
	ColorDarkGray  = "238" // Separators
	ColorGreen     = "114" // Healthy
	ColorRed       = "196" // Errors
	ColorYellow    = "220" // Degraded
)

// Styles holds the lipgloss styles used by renderers and the chat model.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Bar     lipgloss.Style

	// Chat roles
	User      lipgloss.Style
	Assistant lipgloss.Style
	Meta      lipgloss.Style
	Prompt    lipgloss.Style

	Panel lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)).Background(lipgloss.Color(ColorGuinda)).Padding(0, 1),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGuinda)),

		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Meta:      lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorGray)),
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGuinda)),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorGuindaDim)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header: plain, Success: plain, Warning: plain, Error: plain,
		Dim: plain, Label: plain, Bar: plain,
		User: plain, Assistant: plain, Meta: plain, Prompt: plain,
		Panel: plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
