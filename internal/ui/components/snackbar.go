package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// Snackbar renders the current notification as a one line bar
type Snackbar struct {
	Theme theme.Theme
}

// NewSnackbar creates a snackbar
func NewSnackbar(th theme.Theme) *Snackbar {
	return &Snackbar{Theme: th}
}

// View renders n, or "" when it is hidden
func (s *Snackbar) View(n models.AppSnackbar, width int) string {
	if !n.Show || n.Message == "" {
		return ""
	}

	icon := "ℹ "
	switch n.Color {
	case models.ColorSuccess:
		icon = "✓ "
	case models.ColorError:
		icon = "✗ "
	case models.ColorWarning:
		icon = "! "
	}

	return lipgloss.NewStyle().
		Width(width).
		MaxHeight(1).
		Padding(0, 2).
		Foreground(s.Theme.Background).
		Background(s.Theme.NotificationColor(n.Color)).
		Bold(n.Error).
		Render(icon + n.Message)
}
