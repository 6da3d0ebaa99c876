package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/scanner"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	Columns bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh cached statistics for curated files",
		Long: `Recompute file statistics (size, row count, column count) for every
curated file present on disk and store them in the catalog. Running it
again without changes on disk is a no-op.`,
		Example: `  # Refresh statistics
  parqhub sync

  # Also reconcile column metadata with the physical schemas
  parqhub sync --columns`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Columns, "columns", false, "Also sync column metadata for every file on disk")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	cfg := getConfig(cmd.Context())
	logger := getLogger(cmd.Context())
	ctx := cmd.Context()

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	sc := scanner.New(cfg.DataDir, logger)
	rec := reconcile.NewService(st, sc, logger)

	report, err := rec.SyncAllStats(ctx)
	if err != nil {
		return fmt.Errorf("stats sync failed: %w", err)
	}
	fmt.Printf("Stats: %d updated, %d skipped (no metadata)", report.Updated, report.Skipped)
	if len(report.Failed) > 0 {
		fmt.Printf(", %d failed: %v", len(report.Failed), report.Failed)
	}
	fmt.Println()

	if !opts.Columns {
		return nil
	}

	files, err := sc.ListFiles(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		result, err := rec.SyncColumns(ctx, f)
		if err != nil {
			fmt.Printf("  %s: column sync failed: %v\n", f, err)
			continue
		}
		if result.Created > 0 || result.Hidden > 0 {
			fmt.Printf("  %s: %d columns created, %d hidden\n", f, result.Created, result.Hidden)
		}
	}

	return nil
}
