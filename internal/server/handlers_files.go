package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parqhub/parqhub/internal/query"
	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// parseQueryFilters extracts the metadata search filters from the URL.
func parseQueryFilters(r *http.Request) core.MetadataQuery {
	q := core.MetadataQuery{
		Term:        strings.TrimSpace(r.URL.Query().Get("search")),
		Responsible: r.URL.Query().Get("responsible"),
		Permissions: r.URL.Query().Get("permissions"),
	}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}
	return q
}

// parsePageRequest extracts pagination, projection, search and sort
// parameters.
func parsePageRequest(r *http.Request) (query.PageRequest, error) {
	req := query.PageRequest{
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort_by"),
		SortDir: r.URL.Query().Get("sort_dir"),
	}
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Columns = append(req.Columns, c)
			}
		}
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, core.NewValidation("page must be an integer")
		}
		req.Page = n
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, core.NewValidation("page_size must be an integer")
		}
		req.PageSize = n
	}
	return req, nil
}

// handleListFiles returns the combined catalog, filtered when search
// parameters are present.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := parseQueryFilters(r)

	var (
		files []*core.CombinedFileInfo
		err   error
	)
	if q.Term == "" && q.Responsible == "" && q.Permissions == "" && len(q.Tags) == 0 {
		files, err = s.reconcile.ListCombined(r.Context())
	} else {
		files, err = s.reconcile.SearchCombined(r.Context(), q)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"total": len(files),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	combined, err := s.reconcile.GetCombined(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, combined)
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.scanner.FileInfo(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFileData(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	result, err := s.query.Raw(r.Context(), chi.URLParam(r, "filename"), req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFileDataEnhanced(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	result, err := s.query.Query(r.Context(), chi.URLParam(r, "filename"), req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFileSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.reconcile.EffectiveSchema(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleFileSchemaEnhanced(w http.ResponseWriter, r *http.Request) {
	filename, details, hasCustom, err := s.reconcile.SchemaWithStats(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":         filename,
		"columns":          details,
		"has_custom_names": hasCustom,
	})
}

// chartSampleRows bounds how many rows feed the per-column sample values.
const chartSampleRows = 5

// chartColumn classifies one effective column for chart building: its axis
// role, null and distinct counts, a few sample values, and whether it suits
// a measure or a dimension axis.
type chartColumn struct {
	core.EffectiveColumn
	Role          string `json:"role"`
	NullCount     *int64 `json:"null_count,omitempty"`
	DistinctCount *int64 `json:"distinct_count,omitempty"`
	HasNulls      *bool  `json:"has_nulls,omitempty"`
	Samples       []any  `json:"samples"`
	Measure       bool   `json:"measure"`
	Dimension     bool   `json:"dimension"`
}

// chartRole buckets a DuckDB type into the axis roles chart pickers use.
func chartRole(duckType string) string {
	t := strings.ToUpper(duckType)
	switch {
	case strings.Contains(t, "INT") || strings.Contains(t, "DOUBLE") ||
		strings.Contains(t, "FLOAT") || strings.Contains(t, "DECIMAL") ||
		strings.Contains(t, "REAL") || strings.Contains(t, "NUMERIC"):
		return "numeric"
	case strings.Contains(t, "DATE") || strings.Contains(t, "TIME"):
		return "temporal"
	case strings.Contains(t, "BOOL"):
		return "boolean"
	default:
		return "categorical"
	}
}

// handleChartColumns returns the visible columns bucketed by chart role,
// enriched with stats and sample values from the file itself.
func (s *Server) handleChartColumns(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	_, details, _, err := s.reconcile.SchemaWithStats(r.Context(), filename)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	samples := map[string][]any{}
	if len(details) > 0 {
		physical, err := s.scanner.Schema(r.Context(), filename)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		names := make([]string, 0, len(details))
		for _, d := range details {
			names = append(names, d.OriginalName)
		}
		rows, err := s.scanner.Scan(r.Context(), filename, physical, scanner.ScanRequest{
			Columns: names,
			Limit:   chartSampleRows,
		})
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		for _, row := range rows {
			for name, v := range row {
				if v == nil {
					continue
				}
				samples[name] = append(samples[name], v)
			}
		}
	}

	columns := make([]chartColumn, 0, len(details))
	for _, d := range details {
		role := chartRole(d.DataType)
		col := chartColumn{
			EffectiveColumn: d.EffectiveColumn,
			Role:            role,
			NullCount:       d.NullCount,
			DistinctCount:   d.DistinctCount,
			Samples:         samples[d.OriginalName],
			Measure:         role == "numeric",
			Dimension:       role != "numeric",
		}
		if d.NullCount != nil {
			hasNulls := *d.NullCount > 0
			col.HasNulls = &hasNulls
		}
		if col.Samples == nil {
			col.Samples = []any{}
		}
		columns = append(columns, col)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"columns":  columns,
	})
}
