package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/config"
	"github.com/balkashynov/opsportal/internal/db"
	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/logger"
	"github.com/balkashynov/opsportal/internal/portal"
	"github.com/balkashynov/opsportal/internal/syncer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "opsportal",
	Short: "Operations portal for tasks, sessions and store sync",
	Long: `opsportal runs the operational side of the portal from the terminal.
Create and move tasks through their lifecycle, start and stop operator sessions,
and keep the relational copy in step with the document store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app holds the stores and services a command works with
type app struct {
	cfg    *config.Config
	docs   docstore.Store
	rel    *db.Store
	sync   *syncer.Coordinator
	portal *portal.Service
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		workers, _ := cmd.Flags().GetInt("workers")
		cfg.Sync.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp opens both stores and builds the coordinator and portal service.
// A sqlite relational store is migrated on open; postgres needs `migrate`.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	docs, err := docstore.Open(ctx, cfg.Docstore)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	rel, err := db.Open(cfg.Relational)
	if err != nil {
		docs.Close()
		return nil, err
	}
	if rel.Driver() == "sqlite" {
		if err := rel.Migrate(ctx); err != nil {
			docs.Close()
			rel.Close()
			return nil, err
		}
	}

	coord := syncer.New(docs, rel,
		syncer.WithWorkers(cfg.Sync.Workers),
		syncer.WithMaxDuration(cfg.Sync.MaxDuration),
	)

	var opts []portal.Option
	if cfg.Sync.OnWrite {
		opts = append(opts, portal.WithSyncOnWrite(coord))
	}

	return &app{
		cfg:    cfg,
		docs:   docs,
		rel:    rel,
		sync:   coord,
		portal: portal.New(docs, opts...),
	}, nil
}

func (a *app) Close() {
	if err := a.docs.Close(); err != nil {
		logger.For("commands").WithError(err).Warn("failed to close document store")
	}
	if err := a.rel.Close(); err != nil {
		logger.For("commands").WithError(err).Warn("failed to close relational store")
	}
}

// withApp wraps a command function to load config and open the stores first
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "opsportal %s (commit %s, built %s)\n", version, commit, date)
	},
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.opsportal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
