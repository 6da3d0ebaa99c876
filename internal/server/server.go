// Package server exposes the ParqHub HTTP API: the combined catalog, data
// pages, metadata and column CRUD, sync, relationships and the admin surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/parqhub/parqhub/internal/colmeta"
	"github.com/parqhub/parqhub/internal/config"
	"github.com/parqhub/parqhub/internal/metrics"
	"github.com/parqhub/parqhub/internal/query"
	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/relate"
	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// Server is the ParqHub API server.
type Server struct {
	store     core.Store
	scanner   *scanner.Scanner
	reconcile *reconcile.Service
	query     *query.Service
	colmeta   *colmeta.Service
	relate    *relate.Service
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *slog.Logger
}

// NewServer wires the services onto one server instance.
func NewServer(cfg *config.Config, store core.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sc := scanner.New(cfg.DataDir, logger)
	rec := reconcile.NewService(store, sc, logger)
	return &Server{
		store:     store,
		scanner:   sc,
		reconcile: rec,
		query:     query.NewService(rec, sc, cfg.DefaultPageSize, cfg.MaxPageSize, logger),
		colmeta:   colmeta.NewService(store, logger),
		relate:    relate.NewService(store, rec, sc, logger),
		metrics:   metrics.New(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.cfg.Server.Watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	s.updateInventory(ctx)
	return eg.Wait()
}

// Routes builds the full route tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
		s.metrics.Middleware,
	)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Route("/{filename}", func(r chi.Router) {
				r.Get("/", s.handleGetFile)
				r.Get("/info", s.handleFileInfo)
				r.Get("/data", s.handleFileData)
				r.Get("/data/enhanced", s.handleFileDataEnhanced)
				r.Get("/schema", s.handleFileSchema)
				r.Get("/schema/enhanced", s.handleFileSchemaEnhanced)
				r.Get("/charts/columns", s.handleChartColumns)

				r.Route("/columns", func(r chi.Router) {
					r.Get("/", s.handleListColumns)
					r.Put("/{column}", s.handleUpsertColumn)
					r.Post("/bulk", s.handleBulkColumns)
					r.Post("/reset", s.handleResetColumns)
					r.Get("/export", s.handleExportColumns)
					r.Post("/import", s.handleImportColumns)
				})
			})
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Get("/", s.handleListMetadata)
			r.Post("/", s.handleCreateMetadata)
			r.Get("/filters", s.handleMetadataFilters)
			r.Route("/{filename}", func(r chi.Router) {
				r.Get("/", s.handleGetMetadata)
				r.Patch("/", s.handleUpdateMetadata)
				r.Delete("/", s.handleDeleteMetadata)
				r.Get("/history", s.handleHistory)
			})
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/stats", s.handleSyncAllStats)
			r.Post("/stats/{filename}", s.handleSyncStats)
			r.Post("/columns/{filename}", s.handleSyncColumns)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Get("/", s.handleListRelationships)
			r.Post("/", s.handleCreateRelationship)
			r.Delete("/{id}", s.handleDeleteRelationship)
		})
		r.Get("/export/prepare", s.handleExportPrepare)

		r.Route("/admin", func(r chi.Router) {
			if s.cfg.Admin.Password != "" {
				r.Use(middleware.BasicAuth("parqhub admin", map[string]string{
					s.cfg.Admin.Username: s.cfg.Admin.Password,
				}))
			}
			r.Get("/summary", s.handleAdminSummary)
			r.Get("/files/uncurated", s.handleAdminUncurated)
			r.Get("/history/recent", s.handleAdminRecentHistory)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// updateInventory refreshes the catalog gauges.
func (s *Server) updateInventory(ctx context.Context) {
	files, err := s.scanner.ListFiles(ctx)
	if err != nil {
		s.logger.Warn("inventory listing failed", "error", err)
		return
	}
	count, err := s.store.CountFileMetadata(ctx)
	if err != nil {
		s.logger.Warn("inventory count failed", "error", err)
		return
	}
	s.metrics.SetInventory(len(files), int(count))
}

// watchFiles watches the data directory and refreshes cached statistics when
// parquet files change. Events are debounced so a bulk copy triggers one pass.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.cfg.DataDir); err != nil {
		s.logger.Error("failed to watch data directory", "error", err)
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".parquet" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
				s.logger.Debug("data directory changed, refreshing stats", "file", event.Name)
				report, err := s.reconcile.SyncAllStats(ctx)
				s.metrics.ObserveSync("stats", err)
				if err != nil {
					s.logger.Error("stats refresh failed", "error", err)
					return
				}
				s.logger.Debug("stats refreshed", "updated", report.Updated, "skipped", report.Skipped)
				s.updateInventory(ctx)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
