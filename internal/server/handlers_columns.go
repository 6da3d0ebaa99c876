package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parqhub/parqhub/internal/colmeta"
	"github.com/parqhub/parqhub/pkg/core"
)

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	visibleOnly := r.URL.Query().Get("visible_only") == "true"

	columns, err := s.colmeta.List(r.Context(), filename, visibleOnly)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if columns == nil {
		columns = []*core.ColumnMetadata{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"columns":  columns,
	})
}

func (s *Server) handleUpsertColumn(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	column := chi.URLParam(r, "column")

	var patch core.ColumnMetadataPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, created, err := s.colmeta.Upsert(r.Context(), filename, column, patch)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleBulkColumns(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var items []colmeta.BulkItem
	if err := decodeJSON(r, &items); err != nil {
		writeError(w, s.logger, err)
		return
	}

	// Partial failures come back 200 with per-item outcomes; only a request
	// that could not be attempted at all is an error.
	result, err := s.colmeta.BulkUpsert(r.Context(), filename, items)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetColumns(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	deleted, err := s.colmeta.Reset(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"deleted":  deleted,
	})
}

func (s *Server) handleExportColumns(w http.ResponseWriter, r *http.Request) {
	doc, err := s.colmeta.Export(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleImportColumns(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var doc colmeta.ExportDocument
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.colmeta.Import(r.Context(), filename, doc)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
