package help

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// Sections returns every key binding grouped by where it applies
func Sections() []Section {
	return []Section{
		{"Global", []KeyBinding{
			{"?", "Toggle help"},
			{"q, Ctrl+C", "Quit application"},
			{"Tab / Shift+Tab", "Cycle panel focus"},
			{"Ctrl+T", "New query tab"},
			{"Ctrl+W", "Close active tab"},
			{"Ctrl+N / Ctrl+P", "Next / previous tab"},
			{"F5, Ctrl+E", "Run active tab"},
			{"Ctrl+O", "Open a saved query in a new tab"},
			{"Esc", "Dismiss notification or leave editor"},
		}},
		{"Connections", []KeyBinding{
			{"Enter", "Activate connection"},
			{"a", "Add connection"},
			{"e", "Edit as new connection"},
			{"t", "Test connection"},
			{"d", "Delete connection"},
			{"r", "Reload connections"},
		}},
		{"Databases & Objects", []KeyBinding{
			{"↑/k ↓/j", "Move"},
			{"Enter", "Select"},
			{"→/l, Space", "Expand (loads children)"},
			{"←/h", "Collapse or go to parent"},
			{"r", "Reload"},
		}},
		{"Editor & Results", []KeyBinding{
			{"Ctrl+Y", "Copy editor to clipboard"},
			{"y", "Copy selected row (results)"},
			{"Ctrl+S", "Export result as CSV"},
			{"Ctrl+G", "Export result as JSON"},
			{"Ctrl+U / Ctrl+D", "Page up / down (results)"},
		}},
	}
}

// Render creates the help view
func Render(width, height int, th theme.Theme) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("sequel - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, section := range Sections() {
		b.WriteString(sectionStyle.Render(section.Title))
		b.WriteString("\n")
		for _, kb := range section.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(max(width-4, 20)).
		MaxHeight(max(height, 5))

	return boxStyle.Render(b.String())
}
