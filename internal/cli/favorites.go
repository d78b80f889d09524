package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/config"
	"github.com/rebeliceyang/sequel/internal/favorites"
)

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage saved queries",
		Long: `Saved queries live in a YAML file next to the config. Run one with
sequel query <connection-id> <database> --favorite <name>.`,
	}

	cmd.AddCommand(newFavoritesListCommand())
	cmd.AddCommand(newFavoritesAddCommand())
	cmd.AddCommand(newFavoritesShowCommand())
	cmd.AddCommand(newFavoritesDeleteCommand())

	return cmd
}

func openFavorites(cfg *config.Config) (*favorites.Store, error) {
	if cfg.Favorites.Path == "" {
		return nil, errors.New("favorites.path is not set")
	}
	return favorites.Open(cfg.Favorites.Path)
}

func newFavoritesListCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:     "list [search]",
		Aliases: []string{"ls"},
		Short:   "List saved queries",
		Example: `  sequel favorites list
  sequel favorites list orders
  sequel favorites list --top 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if top < 0 {
				return fmt.Errorf("--top must not be negative, got %d", top)
			}
			if top > 0 && len(args) == 1 {
				return errors.New("--top cannot be combined with a search")
			}
			store, err := openFavorites(rt.cfg)
			if err != nil {
				return err
			}

			var favs []favorites.Favorite
			switch {
			case top > 0:
				favs = store.MostUsed(top)
			case len(args) == 1:
				favs = store.Search(args[0])
			default:
				favs = store.List()
			}

			if rt.out == "json" {
				if favs == nil {
					favs = []favorites.Favorite{}
				}
				return renderJSON(cmd.OutOrStdout(), favs)
			}
			renderFavorites(cmd.OutOrStdout(), favs)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Show only the N most used queries")

	return cmd
}

func newFavoritesAddCommand() *cobra.Command {
	var (
		file string
		fav  favorites.Favorite
	)

	cmd := &cobra.Command{
		Use:   "add <name> [sql]",
		Short: "Save a query",
		Example: `  sequel favorites add open-orders "select * from orders where shipped_at is null" --database shop
  sequel favorites add revenue --file revenue.sql --tag finance`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			text, err := readQuery(cmd.InOrStdin(), args[1:], file)
			if err != nil {
				return err
			}
			store, err := openFavorites(rt.cfg)
			if err != nil {
				return err
			}

			fav.Name, fav.Query = args[0], text
			saved, err := store.Add(fav)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved query %q.\n", saved.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")
	cmd.Flags().StringVar(&fav.Description, "description", "", "What the query is for")
	cmd.Flags().StringVar(&fav.Connection, "connection", "", "Connection the query is meant for")
	cmd.Flags().StringVar(&fav.Database, "database", "", "Database the query is meant for")
	cmd.Flags().StringSliceVar(&fav.Tags, "tag", nil, "Tag (repeatable)")

	return cmd
}

func newFavoritesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := openFavorites(rt.cfg)
			if err != nil {
				return err
			}
			fav, err := store.Get(args[0])
			if err != nil {
				return err
			}

			if rt.out == "json" {
				return renderJSON(cmd.OutOrStdout(), fav)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), fav.Query)
			return nil
		},
	}
}

func newFavoritesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved query",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := openFavorites(rt.cfg)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted query %q.\n", args[0])
			return nil
		},
	}
}

func renderFavorites(w io.Writer, favs []favorites.Favorite) {
	t := newTable(w, "Name", "Database", "Tags", "Used", "Query")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60, Transformer: func(v any) string {
			return strings.Join(strings.Fields(fmt.Sprint(v)), " ")
		}},
	})
	for _, f := range favs {
		t.AppendRow(table.Row{f.Name, f.Database, strings.Join(f.Tags, ","), f.UsageCount, f.Query})
	}
	t.Render()
}
