package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

func (s *Server) handleListMetadata(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListFileMetadata(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
	})
}

func (s *Server) handleCreateMetadata(w http.ResponseWriter, r *http.Request) {
	var in core.FileMetadataCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := scanner.ValidateFilename(in.Filename); err != nil {
		writeError(w, s.logger, err)
		return
	}

	created, err := s.store.CreateFileMetadata(r.Context(), in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	record, err := s.store.GetFileMetadata(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if record == nil {
		writeError(w, s.logger, core.NewNotFound("metadata", filename))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// metadataUpdateRequest is a partial patch plus the acting user for the
// change log.
type metadataUpdateRequest struct {
	core.FileMetadataPatch
	ChangedBy string `json:"changed_by"`
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var req metadataUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	updated, err := s.store.UpdateFileMetadata(r.Context(), filename, req.FileMetadataPatch, req.ChangedBy)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if updated == nil {
		writeError(w, s.logger, core.NewNotFound("metadata", filename))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMetadata(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	deleted, err := s.store.DeleteFileMetadata(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if !deleted {
		writeError(w, s.logger, core.NewNotFound("metadata", filename))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": filename})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	record, err := s.store.GetFileMetadata(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if record == nil {
		writeError(w, s.logger, core.NewNotFound("metadata", filename))
		return
	}

	history, err := s.store.GetHistory(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if history == nil {
		history = []*core.MetadataHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"history":  history,
	})
}

// handleMetadataFilters returns the distinct values the search UI offers.
func (s *Server) handleMetadataFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	responsibles, err := s.store.UniqueResponsibles(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	permissions, err := s.store.UniquePermissions(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	tags, err := s.store.UniqueTags(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"responsibles": emptyIfNil(responsibles),
		"permissions":  emptyIfNil(permissions),
		"tags":         emptyIfNil(tags),
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) handleSyncAllStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconcile.SyncAllStats(r.Context())
	s.metrics.ObserveSync("stats", err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.updateInventory(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	updated, err := s.reconcile.SyncStats(r.Context(), chi.URLParam(r, "filename"))
	s.metrics.ObserveSync("stats", err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSyncColumns(w http.ResponseWriter, r *http.Request) {
	result, err := s.reconcile.SyncColumns(r.Context(), chi.URLParam(r, "filename"))
	s.metrics.ObserveSync("columns", err)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
