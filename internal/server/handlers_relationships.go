package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parqhub/parqhub/pkg/core"
)

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	relationships, err := s.relate.List(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if relationships == nil {
		relationships = []*core.Relationship{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"relationships": relationships,
		"total":         len(relationships),
	})
}

func (s *Server) handleCreateRelationship(w http.ResponseWriter, r *http.Request) {
	var rel core.Relationship
	if err := decodeJSON(r, &rel); err != nil {
		writeError(w, s.logger, err)
		return
	}

	created, err := s.relate.Create(r.Context(), rel)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, s.logger, core.NewValidation("relationship id must be an integer"))
		return
	}
	if err := s.relate.Delete(r.Context(), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleExportPrepare(w http.ResponseWriter, r *http.Request) {
	summary, err := s.relate.ExportPrepare(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
