// Package commands provides the ParqHub command-line interface.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parqhub/parqhub/internal/config"
	"github.com/parqhub/parqhub/internal/store"
)

var (
	cfgFile string
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parqhub",
		Short: "ParqHub - Parquet catalog server",
		Long: `ParqHub serves a catalog over a directory of parquet files: live schema
and data inspection through DuckDB, curated business metadata with change
history, per-column display configuration, and relationships for export.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, nil)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)

			logger := newLogger(cfg.Verbose)

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Parquet catalog built with Go and DuckDB
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./parqhub.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory containing parquet files")
	rootCmd.PersistentFlags().String("catalog", "", "Path to the catalog database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewFilesCommand())
	rootCmd.AddCommand(NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// applyFlagOverrides lets explicit CLI flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath, _ = flags.GetString("catalog")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getConfig retrieves the config from the command context.
func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg := &config.Config{
		DataDir:         config.DefaultDataDir,
		CatalogPath:     config.DefaultCatalogPath,
		DefaultPageSize: config.DefaultPageSize,
		MaxPageSize:     config.MaxPageSize,
	}
	cfg.Server.Port = config.DefaultPort
	return cfg
}

// getLogger retrieves the logger from the command context.
func getLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// openStore opens and migrates the catalog database.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.SQLiteStore, error) {
	if cfg.CatalogPath != ":memory:" {
		dir := filepath.Dir(cfg.CatalogPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
	}

	st := store.NewSQLiteStore(logger)
	if err := st.Open(cfg.CatalogPath); err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
