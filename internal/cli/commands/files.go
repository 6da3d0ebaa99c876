package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/scanner"
)

// NewFilesCommand creates the files command.
func NewFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the combined catalog",
		Long: `List every file known to the catalog: parquet files on disk merged with
curated metadata records, newest first.`,
		RunE: runFiles,
	}
}

func runFiles(cmd *cobra.Command, _ []string) error {
	cfg := getConfig(cmd.Context())
	logger := getLogger(cmd.Context())

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	rec := reconcile.NewService(st, scanner.New(cfg.DataDir, logger), logger)
	files, err := rec.ListCombined(cmd.Context())
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Title", "Rows", "Size (MB)", "Modified", "Permissions"})

	for _, f := range files {
		title := ""
		if f.Title != nil {
			title = *f.Title
		}
		rows := "-"
		if f.RowCount != nil {
			rows = fmt.Sprintf("%d", *f.RowCount)
		}
		modified := "-"
		if f.Modified != nil {
			modified = f.Modified.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{f.Name, title, rows, fmt.Sprintf("%.2f", f.SizeMB), modified, f.Permissions})
	}

	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d files\n", len(files))
	return nil
}
