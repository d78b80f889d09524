package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
)

// Theme defines the color scheme and styling
type Theme struct {
	Name string

	// Background colors
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color

	// UI elements
	Border        lipgloss.Color
	BorderFocused lipgloss.Color
	Selection     lipgloss.Color
	Cursor        lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// Table colors
	TableHeader      lipgloss.Color
	TableRowSelected lipgloss.Color

	// Tab bar
	TabActive   lipgloss.Color
	TabInactive lipgloss.Color

	// Navigator
	ActiveItem lipgloss.Color
	NodeBranch lipgloss.Color
	NodeLeaf   lipgloss.Color
}

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMochaTheme()
	default:
		return DefaultTheme()
	}
}

// NotificationColor maps a snackbar color name onto the theme.
func (t Theme) NotificationColor(color string) lipgloss.Color {
	switch color {
	case models.ColorSuccess:
		return t.Success
	case models.ColorError:
		return t.Error
	case models.ColorWarning:
		return t.Warning
	default:
		return t.Info
	}
}
