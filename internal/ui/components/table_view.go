package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/sequel/internal/export"
	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/ui/theme"
)

const (
	maxColumnWidth = 50
	minColumnWidth = 6
)

// TableView displays a query result with a scrolling row window
type TableView struct {
	Columns []string
	Rows    [][]string
	Width   int
	Height  int
	Theme   theme.Theme

	TopRow      int
	VisibleRows int
	SelectedRow int

	ColumnWidths []int

	result *models.QueryResponseContext
}

// NewTableView creates a new table view
func NewTableView(th theme.Theme) *TableView {
	return &TableView{Theme: th}
}

// SetResult loads a result. Cells are laid out in column order.
// A nil result or the result already shown is a no-op.
func (tv *TableView) SetResult(result *models.QueryResponseContext) {
	if result == tv.result {
		return
	}
	tv.result = result
	tv.TopRow = 0
	tv.SelectedRow = 0
	tv.Columns = nil
	tv.Rows = nil
	if result == nil {
		tv.ColumnWidths = nil
		return
	}

	tv.Columns = make([]string, len(result.Columns))
	for i, col := range result.Columns {
		tv.Columns[i] = col.Text
		if tv.Columns[i] == "" {
			tv.Columns[i] = col.Value
		}
	}

	tv.Rows = make([][]string, len(result.Rows))
	for r, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = strings.ReplaceAll(export.FormatCell(row[col.Value]), "\n", " ")
		}
		tv.Rows[r] = cells
	}

	tv.calculateColumnWidths()
}

// Result returns the result being displayed
func (tv *TableView) Result() *models.QueryResponseContext {
	return tv.result
}

func (tv *TableView) calculateColumnWidths() {
	tv.ColumnWidths = make([]int, len(tv.Columns))
	for i, col := range tv.Columns {
		tv.ColumnWidths[i] = runewidth.StringWidth(col)
	}

	for _, row := range tv.Rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > tv.ColumnWidths[i] {
				tv.ColumnWidths[i] = w
			}
		}
	}

	for i := range tv.ColumnWidths {
		if tv.ColumnWidths[i] > maxColumnWidth {
			tv.ColumnWidths[i] = maxColumnWidth
		}
		if tv.ColumnWidths[i] < minColumnWidth {
			tv.ColumnWidths[i] = minColumnWidth
		}
	}
}

// View renders the table
func (tv *TableView) View() string {
	muted := lipgloss.NewStyle().Foreground(tv.Theme.Muted).Italic(true)

	if tv.result == nil {
		return muted.Render("Run a query to see results  [F5]")
	}
	if !tv.result.Status {
		msg := tv.result.Error
		if msg == "" {
			msg = tv.result.Message
		}
		return lipgloss.NewStyle().Foreground(tv.Theme.Error).Width(tv.Width).Render(msg)
	}
	if len(tv.Columns) == 0 {
		return muted.Render(tv.result.Message)
	}

	var b strings.Builder
	b.WriteString(tv.renderHeader())
	b.WriteString("\n")
	b.WriteString(tv.renderSeparator())

	// header, separator and status line
	tv.VisibleRows = tv.Height - 3
	if tv.VisibleRows < 1 {
		tv.VisibleRows = 1
	}

	endRow := tv.TopRow + tv.VisibleRows
	if endRow > len(tv.Rows) {
		endRow = len(tv.Rows)
	}
	for i := tv.TopRow; i < endRow; i++ {
		b.WriteString("\n")
		b.WriteString(tv.renderRow(tv.Rows[i], i == tv.SelectedRow))
	}

	b.WriteString("\n")
	b.WriteString(tv.renderStatus())

	return lipgloss.NewStyle().MaxWidth(tv.Width).Render(b.String())
}

func (tv *TableView) renderHeader() string {
	parts := make([]string, len(tv.Columns))
	for i, col := range tv.Columns {
		parts[i] = pad(col, tv.ColumnWidths[i])
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(tv.Theme.TableHeader).
		Render(" " + strings.Join(parts, " │ ") + " ")
}

func (tv *TableView) renderSeparator() string {
	parts := make([]string, len(tv.ColumnWidths))
	for i, width := range tv.ColumnWidths {
		parts[i] = strings.Repeat("─", width)
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Border).
		Render("─" + strings.Join(parts, "─┼─") + "─")
}

func (tv *TableView) renderRow(row []string, selected bool) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		parts[i] = pad(cell, tv.ColumnWidths[i])
	}
	line := " " + strings.Join(parts, " │ ") + " "

	if selected {
		return lipgloss.NewStyle().
			Background(tv.Theme.TableRowSelected).
			Bold(true).
			Render(line)
	}
	return line
}

func (tv *TableView) renderStatus() string {
	first, last := 0, 0
	if len(tv.Rows) > 0 {
		first = tv.TopRow + 1
		last = tv.TopRow + tv.VisibleRows
		if last > len(tv.Rows) {
			last = len(tv.Rows)
		}
	}

	status := fmt.Sprintf(" %d-%d of %d rows", first, last, len(tv.Rows))
	if tv.result.Elapsed > 0 {
		status += fmt.Sprintf(" · %.0f ms", tv.result.Elapsed)
	}
	return lipgloss.NewStyle().Foreground(tv.Theme.Muted).Italic(true).Render(status)
}

func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// MoveSelection moves the selection up or down
func (tv *TableView) MoveSelection(delta int) {
	if len(tv.Rows) == 0 {
		return
	}
	tv.SelectedRow += delta

	if tv.SelectedRow < 0 {
		tv.SelectedRow = 0
	}
	if tv.SelectedRow >= len(tv.Rows) {
		tv.SelectedRow = len(tv.Rows) - 1
	}

	if tv.SelectedRow < tv.TopRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.VisibleRows > 0 && tv.SelectedRow >= tv.TopRow+tv.VisibleRows {
		tv.TopRow = tv.SelectedRow - tv.VisibleRows + 1
	}
}

// PageUp moves one window up
func (tv *TableView) PageUp() {
	tv.MoveSelection(-max(tv.VisibleRows, 1))
}

// PageDown moves one window down
func (tv *TableView) PageDown() {
	tv.MoveSelection(max(tv.VisibleRows, 1))
}

// SelectedRowValues returns the cells of the selected row
func (tv *TableView) SelectedRowValues() []string {
	if tv.SelectedRow < 0 || tv.SelectedRow >= len(tv.Rows) {
		return nil
	}
	return tv.Rows[tv.SelectedRow]
}
