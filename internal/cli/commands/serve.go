package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parqhub/parqhub/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ParqHub API server",
		Long: `Start the HTTP API server over the configured data directory.

The server exposes:
- Combined catalog of files on disk and curated metadata
- Paginated data pages through the display schema
- Metadata and column configuration endpoints
- Sync, relationships and admin endpoints`,
		Example: `  # Start on the default port
  parqhub serve

  # Start on a custom port without the file watcher
  parqhub serve --port 3000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8080)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the data directory for changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := getConfig(cmd.Context())
	logger := getLogger(cmd.Context())

	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if cmd.Flags().Changed("watch") {
		cfg.Server.Watch = opts.Watch
	}

	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s", cfg.DataDir)
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	srv := server.NewServer(cfg, st, logger)

	fmt.Printf("Starting ParqHub on http://localhost:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
