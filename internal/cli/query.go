package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/export"
	"github.com/rebeliceyang/sequel/internal/favorites"
	"github.com/rebeliceyang/sequel/internal/models"
	"github.com/rebeliceyang/sequel/internal/session"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var (
		file     string
		format   string
		favorite string
	)

	cmd := &cobra.Command{
		Use:   "query <connection-id> <database> [sql]",
		Short: "Run a query and print its result",
		Long: `Run a query against a database of a stored connection. The SQL is read
from the argument, from --file, from a saved query with --favorite, or from
standard input when none is given.`,
		Example: `  sequel query 1 shop "select * from orders limit 10"
  sequel query 1 shop --file report.sql --format csv > report.csv
  sequel query 1 shop --favorite open-orders`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			var exportFormat export.Format
			if format != "" {
				if exportFormat, err = export.ParseFormat(format); err != nil {
					return err
				}
			}

			var (
				text string
				favs *favorites.Store
			)
			if favorite != "" {
				if len(args) > 2 || file != "" {
					return errors.New("--favorite cannot be combined with a query argument or --file")
				}
				if favs, err = openFavorites(rt.cfg); err != nil {
					return err
				}
				fav, err := favs.Get(favorite)
				if err != nil {
					return err
				}
				text = fav.Query
			} else if text, err = readQuery(cmd.InOrStdin(), args[2:], file); err != nil {
				return err
			}

			conn, err := lookupConnection(cmd.Context(), rt.api, args[0])
			if err != nil {
				return err
			}

			qc := models.QueryExecutionContext{Server: *conn, Database: args[1], Query: text}
			exec := session.Execution{Connection: *conn, Database: args[1], Query: text, ExecutedAt: time.Now()}
			resp, err := rt.api.ExecuteQuery(cmd.Context(), qc)
			exec.Duration = time.Since(exec.ExecutedAt)
			exec.Response, exec.Err = resp, err

			if store, herr := openHistory(rt.cfg); herr != nil {
				rt.log.Warn("query history unavailable", "error", herr)
			} else if store != nil {
				if rerr := store.Record(cmd.Context(), exec); rerr != nil {
					rt.log.Warn("failed to record query", "error", rerr)
				}
				_ = store.Close()
			}

			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			if resp == nil {
				resp = &models.QueryResponseContext{Status: true, Message: "OK"}
			}
			if favs != nil {
				if uerr := favs.RecordUsage(favorite); uerr != nil {
					rt.log.Warn("failed to record favorite usage", "error", uerr)
				}
			}

			switch {
			case exportFormat != "":
				if !resp.Status {
					renderResult(cmd.ErrOrStderr(), resp)
					return errors.New("query failed")
				}
				return export.Write(cmd.OutOrStdout(), resp, exportFormat)
			case rt.out == "json":
				return renderJSON(cmd.OutOrStdout(), resp)
			default:
				renderResult(cmd.OutOrStdout(), resp)
			}
			if !resp.Status {
				return errors.New("query failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")
	cmd.Flags().StringVar(&format, "format", "", "Write the result rows as csv or json")
	cmd.Flags().StringVar(&favorite, "favorite", "", "Run a saved query")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func readQuery(stdin io.Reader, args []string, file string) (string, error) {
	var text string
	switch {
	case len(args) > 0 && file != "":
		return "", errors.New("give the query either as an argument or with --file")
	case len(args) > 0:
		text = args[0]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("query is empty")
	}
	return text, nil
}
