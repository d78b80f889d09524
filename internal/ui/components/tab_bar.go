package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

const minTabLabel = 12

// TabBar renders the open query tabs
type TabBar struct {
	Theme theme.Theme
}

// NewTabBar creates a tab bar
func NewTabBar(th theme.Theme) *TabBar {
	return &TabBar{Theme: th}
}

// tabLabel formats "title (n rows)" or "title ✗" for a failed result
func tabLabel(tab models.QueryTabContent) string {
	label := tab.Title
	if tab.Result == nil {
		return label
	}
	if !tab.Result.Status {
		return label + " ✗"
	}
	if tab.Result.RowCount == 1 {
		return label + " (1 row)"
	}
	return fmt.Sprintf("%s (%d rows)", label, tab.Result.RowCount)
}

// View renders the tabs with the active one highlighted.
// Labels shrink to fit width, never below a minimum.
func (tb *TabBar) View(tabs []models.QueryTabContent, active, width int) string {
	if len(tabs) == 0 {
		return lipgloss.NewStyle().Foreground(tb.Theme.Muted).Render("No open tabs  [ctrl+t] new tab")
	}

	maxLabelLen := width/len(tabs) - 2
	if maxLabelLen < minTabLabel {
		maxLabelLen = minTabLabel
	}

	views := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := tabLabel(tab)
		if len([]rune(label)) > maxLabelLen {
			label = tab.Title
			if r := []rune(label); len(r) > maxLabelLen {
				label = string(r[:maxLabelLen-1]) + "…"
			}
		}

		style := lipgloss.NewStyle().
			Foreground(tb.Theme.Foreground).
			Background(tb.Theme.TabInactive).
			Padding(0, 1)
		if i == active {
			style = style.
				Foreground(tb.Theme.Background).
				Background(tb.Theme.TabActive).
				Bold(true)
		}
		views = append(views, style.Render(label))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}
