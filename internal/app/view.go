package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/components"
	"github.com/rebeliceyang/sequel/internal/ui/help"
)

// layout holds the inner sizes of every panel
type layout struct {
	leftWidth   int
	rightWidth  int
	connHeight  int
	dbHeight    int
	treeHeight  int
	editHeight  int
	tableHeight int
}

func (a *App) computeLayout() layout {
	var l layout

	// top bar and bottom bar
	contentHeight := a.height - 2
	if contentHeight < 12 {
		contentHeight = 12
	}

	ratio := a.config.UI.PanelWidthRatio
	if ratio <= 0 || ratio >= 100 {
		ratio = 25
	}
	l.leftWidth = a.width*ratio/100 - 2
	if l.leftWidth < 20 {
		l.leftWidth = 20
	}
	l.rightWidth = a.width - l.leftWidth - 4
	if l.rightWidth < 20 {
		l.rightWidth = 20
	}

	// three stacked panels with two border rows each
	leftInner := contentHeight - 6
	l.connHeight = leftInner / 4
	l.dbHeight = leftInner / 4
	l.treeHeight = leftInner - l.connHeight - l.dbHeight

	// tab bar row, then editor and results panels
	rightInner := contentHeight - 1 - 4
	l.editHeight = rightInner * 2 / 5
	l.tableHeight = rightInner - l.editHeight

	return l
}

// resize pushes panel sizes into the components. Each panel spends one
// inner row on its title.
func (a *App) resize() {
	l := a.computeLayout()

	a.connections.Width, a.connections.Height = l.leftWidth, l.connHeight-1
	a.databases.Width, a.databases.Height = l.leftWidth, l.dbHeight-1
	a.tree.Width, a.tree.Height = l.leftWidth, l.treeHeight-1

	a.editor.SetWidth(l.rightWidth)
	a.editor.SetHeight(max(l.editHeight-1, 1))

	a.table.Width, a.table.Height = l.rightWidth, l.tableHeight-1

	a.form.Width = min(64, max(a.width-8, 30))

	a.favList.Width = min(70, max(a.width-12, 30))
	a.favList.Height = min(15, max(a.height-8, 3))
}

// View implements tea.Model
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	if a.showHelp {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
			help.Render(a.width, a.height, a.theme))
	}
	if a.showForm {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.form.View())
	}
	if a.showFavorites {
		p := components.Panel{
			Title:   "Saved queries  [enter] open  [esc] close",
			Content: a.favList.View(),
			Width:   a.favList.Width,
			Height:  a.favList.Height + 1,
			Focused: true,
			Theme:   a.theme,
		}
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, p.View())
	}

	return a.renderNormalView()
}

func (a *App) renderNormalView() string {
	l := a.computeLayout()

	topBar := lipgloss.NewStyle().
		Width(a.width).
		Background(a.theme.BorderFocused).
		Foreground(a.theme.Background).
		Padding(0, 2).
		Render(a.formatStatusBar("sequel", a.contextLabel()))

	left := lipgloss.JoinVertical(lipgloss.Left,
		a.panel("Connections", a.connections.View(), l.leftWidth, l.connHeight, focusConnections),
		a.panel("Databases", a.databases.View(), l.leftWidth, l.dbHeight, focusDatabases),
		a.panel("Objects", a.tree.View(), l.leftWidth, l.treeHeight, focusTree),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		a.tabBar.View(a.snap.Tabs, a.snap.ActiveTab, l.rightWidth+2),
		a.panel("Query", a.editor.View(), l.rightWidth, l.editHeight, focusEditor),
		a.panel("Results", a.table.View(), l.rightWidth, l.tableHeight, focusResults),
	)

	bottomBar := a.snackbar.View(a.snap.Notification, a.width)
	if bottomBar == "" {
		bottomBar = lipgloss.NewStyle().
			Width(a.width).
			Background(a.theme.Selection).
			Foreground(a.theme.Foreground).
			Padding(0, 2).
			Render(a.formatStatusBar("[tab] focus | [F5] run | [ctrl+t] new tab | [?] help", "[q] quit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		bottomBar,
	)
}

func (a *App) panel(title, content string, width, height int, area focusArea) string {
	p := components.Panel{
		Title:   title,
		Content: content,
		Width:   width,
		Height:  height,
		Focused: a.focus == area,
		Theme:   a.theme,
	}
	return p.View()
}

// contextLabel names the active connection and database
func (a *App) contextLabel() string {
	if a.snap.ActiveConnection == nil {
		return "not connected"
	}
	label := fmt.Sprintf("%s (%s)", a.snap.ActiveConnection.DisplayName(), a.snap.ActiveConnection.DBMS)
	if a.snap.ActiveDatabase != "" {
		label += " / " + a.snap.ActiveDatabase
	}
	if path := models.PathTo(a.snap.Nodes, a.snap.ActiveNode); path != nil {
		label += " / " + strings.Join(path, "/")
	}
	return label
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	// Account for padding (2 chars on each side = 4 total)
	availableWidth := a.width - 4
	if availableWidth < 0 {
		availableWidth = 0
	}

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	if leftLen+rightLen > availableWidth {
		return lipgloss.NewStyle().MaxWidth(availableWidth).Render(left)
	}

	spacing := availableWidth - leftLen - rightLen
	return left + lipgloss.NewStyle().Width(spacing).Render("") + right
}
