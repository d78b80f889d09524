package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [search]",
		Short: "Show recently executed queries",
		Long:  `Show the most recent queries, or the ones whose text contains search.`,
		Example: `  sequel history
  sequel history orders --limit 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			store, err := openHistory(rt.cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("query history is disabled")
			}
			defer store.Close()

			var entries []history.HistoryEntry
			if len(args) == 1 {
				entries, err = store.Search(cmd.Context(), args[0], limit)
			} else {
				entries, err = store.GetRecent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if rt.out == "json" {
				if entries == nil {
					entries = []history.HistoryEntry{}
				}
				return renderJSON(cmd.OutOrStdout(), entries)
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")

	return cmd
}

func renderHistory(w io.Writer, entries []history.HistoryEntry) {
	t := newTable(w, "When", "Connection", "Database", "Query", "Rows", "Time", "Status")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60, Transformer: func(v any) string {
			return strings.Join(strings.Fields(fmt.Sprint(v)), " ")
		}},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
			if e.ErrorMessage != "" {
				status += ": " + e.ErrorMessage
			}
		}
		t.AppendRow(table.Row{
			e.ExecutedAt.Local().Format(time.DateTime),
			e.ConnectionName,
			e.DatabaseName,
			e.Query,
			e.RowsAffected,
			e.Duration.Round(time.Millisecond),
			status,
		})
	}
	t.Render()
}
