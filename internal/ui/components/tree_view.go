package components

// TreeView renders the database object forest of the active database.
//
// The forest itself belongs to the session; the view only keeps which nodes
// are open and where the cursor is. Opening a node that was never loaded
// asks the owner to fetch its children through TreeNodeExpandMsg.
//
// Keys: ↑↓/jk move, →/l/space open, ←/h close or jump to parent,
// g/G top and bottom, enter selects.

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

// TreeView represents a visual tree component for displaying hierarchical data
type TreeView struct {
	Nodes        []*models.TreeNode
	CursorIndex  int
	Width        int
	Height       int
	Theme        theme.Theme
	ScrollOffset int
	Active       models.NodeID

	expanded map[models.NodeID]bool
}

// TreeNodeSelectedMsg is sent when a node is selected (Enter key)
type TreeNodeSelectedMsg struct {
	ID models.NodeID
}

// TreeNodeExpandMsg asks for the children of a node that was opened
// before they were loaded.
type TreeNodeExpandMsg struct {
	ID models.NodeID
}

// NewTreeView creates a new tree view component
func NewTreeView(th theme.Theme) *TreeView {
	return &TreeView{
		Width:    40,
		Height:   20,
		Theme:    th,
		expanded: make(map[models.NodeID]bool),
	}
}

// SetNodes replaces the forest. Open state survives for nodes that still exist.
func (tv *TreeView) SetNodes(nodes []*models.TreeNode, active models.NodeID) {
	tv.Nodes = nodes
	tv.Active = active

	if len(nodes) == 0 {
		tv.expanded = make(map[models.NodeID]bool)
		tv.CursorIndex = 0
		tv.ScrollOffset = 0
		return
	}
	for id := range tv.expanded {
		if models.FindInForest(nodes, id) == nil {
			delete(tv.expanded, id)
		}
	}
}

// IsExpanded reports whether a node is open in this view
func (tv *TreeView) IsExpanded(id models.NodeID) bool {
	return tv.expanded[id]
}

func (tv *TreeView) visible() []models.FlatNode {
	return models.Flatten(tv.Nodes, tv.IsExpanded)
}

// View renders the tree as a string
func (tv *TreeView) View() string {
	visibleNodes := tv.visible()
	if len(visibleNodes) == 0 {
		return tv.emptyState()
	}

	tv.clampCursor(len(visibleNodes))

	viewHeight := tv.Height
	if viewHeight < 1 {
		viewHeight = 1
	}
	tv.adjustScrollOffset(len(visibleNodes), viewHeight)

	endIdx := tv.ScrollOffset + viewHeight
	if endIdx > len(visibleNodes) {
		endIdx = len(visibleNodes)
	}

	lines := make([]string, 0, viewHeight)
	for i := tv.ScrollOffset; i < endIdx; i++ {
		lines = append(lines, tv.renderNode(visibleNodes[i], i == tv.CursorIndex))
	}
	return strings.Join(lines, "\n")
}

// Update handles keyboard input for tree navigation
func (tv *TreeView) Update(msg tea.KeyMsg) (*TreeView, tea.Cmd) {
	visibleNodes := tv.visible()
	if len(visibleNodes) == 0 {
		return tv, nil
	}
	tv.clampCursor(len(visibleNodes))
	current := visibleNodes[tv.CursorIndex].Node

	switch msg.String() {
	case "up", "k":
		if tv.CursorIndex > 0 {
			tv.CursorIndex--
		}

	case "down", "j":
		if tv.CursorIndex < len(visibleNodes)-1 {
			tv.CursorIndex++
		}

	case "g":
		tv.CursorIndex = 0
		tv.ScrollOffset = 0

	case "G":
		tv.CursorIndex = len(visibleNodes) - 1

	case "right", "l", " ":
		if tv.expanded[current.ID] {
			return tv, nil
		}
		tv.expanded[current.ID] = true
		if !current.Loaded {
			id := current.ID
			return tv, func() tea.Msg { return TreeNodeExpandMsg{ID: id} }
		}

	case "left", "h":
		if tv.expanded[current.ID] {
			delete(tv.expanded, current.ID)
			return tv, nil
		}
		if parent := models.ParentOf(tv.Nodes, current.ID); parent != nil {
			tv.SetCursorToNode(parent.ID)
		}

	case "enter":
		id := current.ID
		return tv, func() tea.Msg { return TreeNodeSelectedMsg{ID: id} }
	}

	return tv, nil
}

func (tv *TreeView) renderNode(fn models.FlatNode, selected bool) string {
	node := fn.Node
	indent := strings.Repeat("  ", fn.Depth)

	icon := lipgloss.NewStyle().Foreground(tv.Theme.NodeBranch).Render(tv.getNodeIcon(node))
	label := node.Name
	if node.Type != "" {
		label += " " + lipgloss.NewStyle().Foreground(tv.Theme.Muted).Render(node.Type)
	}
	if node.Loaded && len(node.Children) > 0 && !tv.expanded[node.ID] {
		label += lipgloss.NewStyle().Foreground(tv.Theme.Muted).Render(fmt.Sprintf(" (%d)", len(node.Children)))
	}

	content := fmt.Sprintf("%s%s %s", indent, icon, label)

	maxWidth := tv.Width
	if maxWidth < 1 {
		maxWidth = 1
	}
	style := lipgloss.NewStyle().Foreground(tv.Theme.Foreground).MaxWidth(maxWidth)
	if node.ID == tv.Active {
		style = style.Foreground(tv.Theme.ActiveItem)
	}
	if selected {
		style = style.Background(tv.Theme.Selection).Bold(true)
	}
	return style.Render(content)
}

func (tv *TreeView) getNodeIcon(node *models.TreeNode) string {
	switch {
	case tv.expanded[node.ID]:
		return "▾"
	case node.Loaded && len(node.Children) == 0:
		return "•"
	default:
		return "▸"
	}
}

func (tv *TreeView) clampCursor(n int) {
	if tv.CursorIndex >= n {
		tv.CursorIndex = n - 1
	}
	if tv.CursorIndex < 0 {
		tv.CursorIndex = 0
	}
}

// adjustScrollOffset adjusts the scroll offset to keep the cursor visible
func (tv *TreeView) adjustScrollOffset(totalNodes, viewHeight int) {
	if tv.CursorIndex < tv.ScrollOffset {
		tv.ScrollOffset = tv.CursorIndex
	}
	if tv.CursorIndex >= tv.ScrollOffset+viewHeight {
		tv.ScrollOffset = tv.CursorIndex - viewHeight + 1
	}

	maxScroll := totalNodes - viewHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if tv.ScrollOffset > maxScroll {
		tv.ScrollOffset = maxScroll
	}
	if tv.ScrollOffset < 0 {
		tv.ScrollOffset = 0
	}
}

func (tv *TreeView) emptyState() string {
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Muted).
		Italic(true).
		Render("No objects")
}

// GetCurrentNode returns the node under the cursor
func (tv *TreeView) GetCurrentNode() *models.TreeNode {
	visibleNodes := tv.visible()
	if tv.CursorIndex < 0 || tv.CursorIndex >= len(visibleNodes) {
		return nil
	}
	return visibleNodes[tv.CursorIndex].Node
}

// SetCursorToNode moves the cursor to a visible node
func (tv *TreeView) SetCursorToNode(id models.NodeID) bool {
	for i, fn := range tv.visible() {
		if fn.Node.ID == id {
			tv.CursorIndex = i
			return true
		}
	}
	return false
}
