package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/models"
)

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "databases <connection-id>",
		Aliases: []string{"dbs"},
		Short:   "List the databases of a server connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			conn, err := lookupConnection(cmd.Context(), rt.api, args[0])
			if err != nil {
				return err
			}
			names, err := rt.api.ListDatabases(cmd.Context(), *conn)
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}

			if rt.out == "json" {
				if names == nil {
					names = []string{}
				}
				return renderJSON(cmd.OutOrStdout(), names)
			}
			renderDatabases(cmd.OutOrStdout(), names)
			return nil
		},
	}
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand() *cobra.Command {
	var expand []string

	cmd := &cobra.Command{
		Use:   "objects <connection-id> <database>",
		Short: "Show the object tree of a database",
		Long: `Show the root objects of a database. Each --expand names a path of
objects, separated by "/", whose children are fetched and shown as well.`,
		Example: `  sequel objects 1 shop
  sequel objects 1 shop --expand public --expand public/tables`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			conn, err := lookupConnection(cmd.Context(), rt.api, args[0])
			if err != nil {
				return err
			}

			qc := models.QueryExecutionContext{Server: *conn, Database: args[1]}
			roots, err := rt.api.ListDatabaseObjects(cmd.Context(), qc)
			if err != nil {
				return fmt.Errorf("failed to list objects: %w", err)
			}

			for _, path := range expand {
				node := findObject(roots, splitObjectPath(path))
				if node == nil {
					return fmt.Errorf("object %q not found", path)
				}
				// the parent goes out with the children it already has
				qc.DatabaseObject = node
				children, err := rt.api.ListDatabaseObjects(cmd.Context(), qc)
				if err != nil {
					return fmt.Errorf("failed to expand %s: %w", path, err)
				}
				node.Children = children
			}

			if rt.out == "json" {
				if roots == nil {
					roots = []models.DatabaseObjectNode{}
				}
				return renderJSON(cmd.OutOrStdout(), roots)
			}
			renderObjects(cmd.OutOrStdout(), roots)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&expand, "expand", nil, "Object path to expand, e.g. public/tables (repeatable)")

	return cmd
}

func splitObjectPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// findObject walks names down the forest and returns the node they lead to
func findObject(nodes []models.DatabaseObjectNode, names []string) *models.DatabaseObjectNode {
	if len(names) == 0 {
		return nil
	}
	for i := range nodes {
		if nodes[i].Name != names[0] {
			continue
		}
		if len(names) == 1 {
			return &nodes[i]
		}
		return findObject(nodes[i].Children, names[1:])
	}
	return nil
}
