package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rebeliceyang/sequel/internal/export"
	"github.com/rebeliceyang/sequel/internal/models"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderConnections(w io.Writer, conns []models.ServerConnection) {
	t := newTable(w, "ID", "Name", "DBMS", "Host", "Port", "Username")
	for _, c := range conns {
		port := ""
		if c.Port != 0 {
			port = strconv.Itoa(c.Port)
		}
		t.AppendRow(table.Row{c.ID, c.Name, c.DBMS, c.Host, port, c.Username})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(conns)})
	t.Render()
}

func renderDatabases(w io.Writer, names []string) {
	t := newTable(w, "Database")
	for _, name := range names {
		t.AppendRow(table.Row{name})
	}
	t.Render()
}

// renderObjects prints the object forest as an indented tree
func renderObjects(w io.Writer, nodes []models.DatabaseObjectNode) {
	l := list.NewWriter()
	l.SetOutputMirror(w)
	l.SetStyle(list.StyleConnectedLight)
	appendObjects(l, nodes)
	l.Render()
}

func appendObjects(l list.Writer, nodes []models.DatabaseObjectNode) {
	for _, n := range nodes {
		label := n.Name
		if n.Type != "" {
			label = fmt.Sprintf("%s (%s)", n.Name, n.Type)
		}
		l.AppendItem(label)
		if len(n.Children) > 0 {
			l.Indent()
			appendObjects(l, n.Children)
			l.UnIndent()
		}
	}
}

// renderResult prints a query result grid followed by its status line
func renderResult(w io.Writer, res *models.QueryResponseContext) {
	if !res.Status {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		_, _ = fmt.Fprintf(w, "Query failed: %s\n", msg)
		return
	}

	if len(res.Columns) > 0 {
		header := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			header[i] = columnTitle(col)
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(header)
		for _, row := range res.Rows {
			r := make(table.Row, len(res.Columns))
			for i, col := range res.Columns {
				r[i] = export.FormatCell(row[col.Value])
			}
			t.AppendRow(r)
		}
		t.Render()
	}

	status := []string{fmt.Sprintf("%d rows", res.RowCount), fmt.Sprintf("%.0f ms", res.Elapsed)}
	if res.Message != "" {
		status = append([]string{res.Message}, status...)
	}
	_, _ = fmt.Fprintln(w, strings.Join(status, " · "))
}

func columnTitle(col models.ColumnDefinition) string {
	if col.Text != "" {
		return col.Text
	}
	return col.Value
}
