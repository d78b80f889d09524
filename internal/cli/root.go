// Package cli provides the command-line interface for sequel.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/sequel/internal/app"
	"github.com/rebeliceyang/sequel/internal/client"
	"github.com/rebeliceyang/sequel/internal/config"
	"github.com/rebeliceyang/sequel/internal/history"
	"github.com/rebeliceyang/sequel/internal/logger"
	"github.com/rebeliceyang/sequel/internal/session"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// runtimeKey is used to store the runtime in context.
type runtimeKey struct{}

// runtime carries everything a command needs after flags and config are resolved
type runtime struct {
	cfg    *config.Config
	loader *config.Loader
	log    *logger.Logger
	api    *client.Sequel
	out    string
	logOut io.Closer
}

func (r *runtime) close() {
	if r.logOut != nil {
		_ = r.logOut.Close()
		r.logOut = nil
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		output  string
	)

	rootCmd := &cobra.Command{
		Use:   "sequel",
		Short: "sequel - terminal client for many database servers",
		Long: `sequel talks to a sequel backend to manage server connections, browse
databases and their objects, and run queries against MySQL, MariaDB,
Oracle, PostgreSQL, SQLite, SQL Server, Cassandra and CockroachDB.

Run without a subcommand to start the terminal UI.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			switch output {
			case "table", "json":
			default:
				return fmt.Errorf("unknown output format %q (want table or json)", output)
			}

			loader := config.NewLoader(cfgFile)
			if err := loader.BindFlags(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			rt := &runtime{cfg: cfg, loader: loader, out: output}

			// the terminal UI owns the screen, so it never logs to stderr
			logFile := cfg.Log.File
			if logFile == "" && cmd == cmd.Root() {
				if dir, err := config.GetConfigPath(); err == nil {
					logFile = filepath.Join(dir, "sequel.log")
				}
			}
			var w io.Writer = cmd.ErrOrStderr()
			if logFile != "" {
				f, err := openLogFile(logFile)
				if err != nil {
					return err
				}
				w, rt.logOut = f, f
			}
			rt.log = logger.New(cfg.Log.Level, cfg.Log.Format, w)

			rt.api = client.NewSequel(client.NewHTTPClient(cfg.API.BaseURL, nil, cfg.API.TimeoutDuration(), rt.log))

			if used := loader.ConfigFile(); used != "" {
				rt.log.Debug("config loaded", "file", used)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok {
				rt.close()
			}
		},
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <user config dir>/sequel/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the sequel backend")
	rootCmd.PersistentFlags().Int("timeout", 0, "Backend request timeout in seconds")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().String("theme", "", "Color theme (default|catppuccin)")
	rootCmd.PersistentFlags().Bool("history", true, "Record executed queries")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("theme", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"default", "catppuccin"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand(Version))
	rootCmd.AddCommand(NewConnectionsCommand())
	rootCmd.AddCommand(NewDatabasesCommand())
	rootCmd.AddCommand(NewObjectsCommand())
	rootCmd.AddCommand(NewQueryCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewFavoritesCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getRuntime(cmd *cobra.Command) (*runtime, error) {
	if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok {
		return rt, nil
	}
	return nil, errors.New("command is not initialized")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// openHistory opens the query history store, or returns nil when history is off
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	if cfg.History.Path == "" {
		return nil, errors.New("history.path is not set")
	}
	return history.NewStore(cfg.History.Path, cfg.History.MaxEntries)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	log := rt.log.WithComponent("cli")

	opts := []session.Option{session.WithLogger(rt.log)}
	store, err := openHistory(rt.cfg)
	if err != nil {
		log.Warn("query history disabled", "error", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, session.WithRecorder(store))
	}

	if rt.loader.ConfigFile() != "" {
		rt.loader.Watch(func(cfg *config.Config, err error) {
			if err != nil {
				log.Warn("ignoring config change", "error", err)
				return
			}
			rt.log.SetLevel(cfg.Log.Level)
			log.Info("config reloaded", "file", rt.loader.ConfigFile(), "log_level", cfg.Log.Level)
		})
	}

	var saved app.SavedQueries
	if favs, err := openFavorites(rt.cfg); err != nil {
		log.Warn("saved queries unavailable", "error", err)
	} else {
		saved = favs
	}

	exportDir, err := os.Getwd()
	if err != nil {
		exportDir = "."
	}

	sess := session.New(rt.api, opts...)
	a := app.New(sess, app.Options{
		Config:    rt.cfg,
		Logger:    rt.log,
		ExportDir: exportDir,
		Favorites: saved,
	})

	log.Info("starting terminal UI", "api", rt.cfg.API.BaseURL)
	return app.Run(cmd.Context(), a)
}
