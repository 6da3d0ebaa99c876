package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/parqhub/parqhub/pkg/core"
)

// handleAdminSummary reports catalog health at a glance: how much is on disk,
// how much is curated, and when the catalog last moved.
func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	files, err := s.scanner.ListFiles(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	curated, err := s.store.CountFileMetadata(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	lastUpdated, err := s.store.LastUpdatedAt(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	uncurated := 0
	for _, f := range files {
		record, err := s.store.GetFileMetadata(ctx, f)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if record == nil {
			uncurated++
		}
	}

	recent, err := s.store.RecentHistory(ctx, time.Now().UTC().AddDate(0, 0, -7), 10)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if recent == nil {
		recent = []*core.MetadataHistory{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files_on_disk":   len(files),
		"curated_records": curated,
		"files_uncurated": uncurated,
		"last_updated_at": lastUpdated,
		"recent_history":  recent,
	})
}

// handleAdminUncurated lists files on disk that nobody has curated yet.
func (s *Server) handleAdminUncurated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	files, err := s.scanner.ListFiles(ctx)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	uncurated := []string{}
	for _, f := range files {
		record, err := s.store.GetFileMetadata(ctx, f)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		if record == nil {
			uncurated = append(uncurated, f)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": uncurated,
		"total": len(uncurated),
	})
}

// handleAdminRecentHistory returns the newest changes across all files.
func (s *Server) handleAdminRecentHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, s.logger, core.NewValidation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, s.logger, core.NewValidation("days must be a positive integer"))
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	history, err := s.store.RecentHistory(r.Context(), since, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if history == nil {
		history = []*core.MetadataHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
		"total":   len(history),
	})
}
