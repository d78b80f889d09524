package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// ListItem is one row of a ListView
type ListItem struct {
	Label  string
	Detail string
	Active bool
}

// ListItemSelectedMsg is sent when enter is pressed on a row
type ListItemSelectedMsg struct {
	List  string
	Index int
}

// ListView is a flat, scrollable selection list
type ListView struct {
	Name         string
	Items        []ListItem
	Cursor       int
	ScrollOffset int
	Width        int
	Height       int
	Theme        theme.Theme
	Empty        string
}

// NewListView creates a list identified by name in selection messages
func NewListView(name, empty string, th theme.Theme) *ListView {
	return &ListView{Name: name, Empty: empty, Theme: th, Width: 30, Height: 5}
}

// SetItems replaces the rows, keeping the cursor in range
func (lv *ListView) SetItems(items []ListItem) {
	lv.Items = items
	if lv.Cursor >= len(items) {
		lv.Cursor = len(items) - 1
	}
	if lv.Cursor < 0 {
		lv.Cursor = 0
	}
}

// Update handles navigation keys
func (lv *ListView) Update(msg tea.KeyMsg) (*ListView, tea.Cmd) {
	if len(lv.Items) == 0 {
		return lv, nil
	}

	switch msg.String() {
	case "up", "k":
		if lv.Cursor > 0 {
			lv.Cursor--
		}
	case "down", "j":
		if lv.Cursor < len(lv.Items)-1 {
			lv.Cursor++
		}
	case "g":
		lv.Cursor = 0
	case "G":
		lv.Cursor = len(lv.Items) - 1
	case "enter":
		name, idx := lv.Name, lv.Cursor
		return lv, func() tea.Msg { return ListItemSelectedMsg{List: name, Index: idx} }
	}
	return lv, nil
}

// View renders the visible rows
func (lv *ListView) View() string {
	if len(lv.Items) == 0 {
		return lipgloss.NewStyle().Foreground(lv.Theme.Muted).Italic(true).Render(lv.Empty)
	}

	height := lv.Height
	if height < 1 {
		height = 1
	}
	if lv.Cursor < lv.ScrollOffset {
		lv.ScrollOffset = lv.Cursor
	}
	if lv.Cursor >= lv.ScrollOffset+height {
		lv.ScrollOffset = lv.Cursor - height + 1
	}

	end := lv.ScrollOffset + height
	if end > len(lv.Items) {
		end = len(lv.Items)
	}

	width := lv.Width
	if width < 1 {
		width = 1
	}

	lines := make([]string, 0, end-lv.ScrollOffset)
	for i := lv.ScrollOffset; i < end; i++ {
		item := lv.Items[i]

		marker := "  "
		style := lipgloss.NewStyle().Foreground(lv.Theme.Foreground).MaxWidth(width)
		if item.Active {
			marker = "● "
			style = style.Foreground(lv.Theme.ActiveItem)
		}
		if i == lv.Cursor {
			style = style.Background(lv.Theme.Selection).Bold(true)
		}

		text := marker + item.Label
		if item.Detail != "" {
			text += " " + lipgloss.NewStyle().Foreground(lv.Theme.Muted).Render(item.Detail)
		}
		lines = append(lines, style.Render(text))
	}
	return strings.Join(lines, "\n")
}
