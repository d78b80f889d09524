package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/client"
	"github.com/rebeliceyang/sequel/internal/models"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage server connections",
		Long:    `List, add, delete and test the server connections stored by the backend.`,
	}

	cmd.AddCommand(newConnectionsListCommand())
	cmd.AddCommand(newConnectionsAddCommand())
	cmd.AddCommand(newConnectionsDeleteCommand())
	cmd.AddCommand(newConnectionsTestCommand())

	return cmd
}

func newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List server connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			conns, err := rt.api.ListServerConnections(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list connections: %w", err)
			}

			if rt.out == "json" {
				if conns == nil {
					conns = []models.ServerConnection{}
				}
				return renderJSON(cmd.OutOrStdout(), conns)
			}
			renderConnections(cmd.OutOrStdout(), conns)
			return nil
		},
	}
}

// connectionFlags holds the fields of a connection given on the command line
type connectionFlags struct {
	name     string
	dbms     string
	host     string
	port     int
	username string
	password string
	connStr  string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.dbms, "dbms", "", "Server type (MySQL|MariaDB|Oracle|PostgreSQL|SQLite|SQLServer|Cassandra|CockroachDB)")
	cmd.Flags().StringVar(&f.host, "host", "", "Server host")
	cmd.Flags().IntVar(&f.port, "port", 0, "Server port")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "User name")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&f.connStr, "connection-string", "", "Driver specific connection string")
	_ = cmd.RegisterFlagCompletionFunc("dbms", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(models.AllDBMS()))
		for _, d := range models.AllDBMS() {
			names = append(names, d.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func (f *connectionFlags) connection() (models.ServerConnection, error) {
	dbms, err := models.ParseDBMS(f.dbms)
	if err != nil {
		return models.ServerConnection{}, err
	}
	if f.host == "" && f.connStr == "" && dbms != models.SQLite {
		return models.ServerConnection{}, fmt.Errorf("--host or --connection-string is required for %s", dbms)
	}
	if f.port < 0 || f.port > 65535 {
		return models.ServerConnection{}, fmt.Errorf("invalid port %d", f.port)
	}
	return models.ServerConnection{
		Name:             f.name,
		DBMS:             dbms,
		Host:             f.host,
		Port:             f.port,
		Username:         f.username,
		Password:         f.password,
		ConnectionString: f.connStr,
	}, nil
}

func newConnectionsAddCommand() *cobra.Command {
	var flags connectionFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new server connection",
		Example: `  sequel connections add --name local --dbms PostgreSQL --host localhost --port 5432 -u postgres
  sequel connections add --dbms SQLite --connection-string /data/app.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			conn, err := flags.connection()
			if err != nil {
				return err
			}
			if err := rt.api.AddServerConnection(cmd.Context(), conn); err != nil {
				return fmt.Errorf("failed to add connection: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "New database connection added.")
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("dbms")

	return cmd
}

func newConnectionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <connection-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a server connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			id, err := parseConnectionID(args[0])
			if err != nil {
				return err
			}
			if err := rt.api.DeleteServerConnection(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete connection %d: %w", id, err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database connection deleted.")
			return nil
		},
	}
}

func newConnectionsTestCommand() *cobra.Command {
	var flags connectionFlags

	cmd := &cobra.Command{
		Use:   "test [connection-id]",
		Short: "Test a stored connection or the one described by flags",
		Example: `  sequel connections test 3
  sequel connections test --dbms MySQL --host db.internal -u root -p secret`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			var conn models.ServerConnection
			if len(args) == 1 {
				stored, err := lookupConnection(cmd.Context(), rt.api, args[0])
				if err != nil {
					return err
				}
				conn = *stored
			} else {
				if flags.dbms == "" {
					return errors.New("give a connection id or describe the connection with --dbms")
				}
				if conn, err = flags.connection(); err != nil {
					return err
				}
			}

			if err := rt.api.TestServerConnection(cmd.Context(), conn); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Connection test successful.")
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func parseConnectionID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid connection id %q", arg)
	}
	return id, nil
}

// lookupConnection finds a stored connection by its id argument
func lookupConnection(ctx context.Context, api *client.Sequel, arg string) (*models.ServerConnection, error) {
	id, err := parseConnectionID(arg)
	if err != nil {
		return nil, err
	}

	conns, err := api.ListServerConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	for i := range conns {
		if conns[i].ID == id {
			return &conns[i], nil
		}
	}
	return nil, fmt.Errorf("connection %d not found", id)
}
