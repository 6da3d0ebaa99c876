// Package query builds paginated data pages through the display schema: rows
// come back keyed by display names, search sweeps every physical column, and
// sorting accepts either display or original names.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// Service executes display-projected reads against parquet files.
type Service struct {
	reconcile       *reconcile.Service
	scanner         *scanner.Scanner
	defaultPageSize int
	maxPageSize     int
	logger          *slog.Logger
}

// NewService creates a query service. A nil logger discards output.
func NewService(rec *reconcile.Service, sc *scanner.Scanner, defaultPageSize, maxPageSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		reconcile:       rec,
		scanner:         sc,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// PageRequest describes one data-page read. Page is 1-based; a zero PageSize
// takes the configured default. An empty Columns list means every visible
// column.
type PageRequest struct {
	Page     int
	PageSize int
	Columns  []string
	Search   string
	SortBy   string
	SortDir  string
}

// PageResult is one page of display-projected rows.
type PageResult struct {
	Filename       string                 `json:"filename"`
	Columns        []core.EffectiveColumn `json:"columns"`
	Rows           []map[string]any       `json:"rows"`
	Page           int                    `json:"page"`
	PageSize       int                    `json:"page_size"`
	TotalRows      int64                  `json:"total_rows"`
	TotalPages     int                    `json:"total_pages"`
	HasCustomNames bool                   `json:"has_custom_names"`
	Message        string                 `json:"message,omitempty"`
}

// normalize validates and fills a request against the configured bounds.
func (s *Service) normalize(req PageRequest) (PageRequest, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Page < 1 {
		return req, core.NewValidation("page must be at least 1")
	}
	if req.PageSize == 0 {
		req.PageSize = s.defaultPageSize
	}
	if req.PageSize < 1 {
		return req, core.NewValidation("page_size must be at least 1")
	}
	if req.PageSize > s.maxPageSize {
		return req, core.NewValidation("page_size exceeds maximum of %d", s.maxPageSize)
	}

	switch strings.ToLower(req.SortDir) {
	case "", "asc":
		req.SortDir = "asc"
	case "desc":
		req.SortDir = "desc"
	default:
		return req, core.NewValidation("sort_dir must be 'asc' or 'desc'")
	}
	return req, nil
}

// resolveSort maps a requested sort name, display or original, onto the
// physical column to order by. Only columns in the projection are sortable.
func resolveSort(columns []core.EffectiveColumn, sortBy string) (string, error) {
	for _, c := range columns {
		if c.DisplayName == sortBy || c.OriginalName == sortBy {
			return c.OriginalName, nil
		}
	}
	return "", core.NewValidation("unknown sort column %q", sortBy)
}

// selectColumns resolves requested names against the effective schema. A name
// matching a display or original name takes that column; anything else passes
// through verbatim as a physical projection, so hidden columns stay reachable
// by name and truly unknown ones fail the scanner's own validation.
func selectColumns(effective []core.EffectiveColumn, requested []string) []core.EffectiveColumn {
	byName := make(map[string]core.EffectiveColumn, len(effective)*2)
	for _, c := range effective {
		byName[c.OriginalName] = c
		byName[c.DisplayName] = c
	}

	out := make([]core.EffectiveColumn, 0, len(requested))
	for _, name := range requested {
		if c, ok := byName[name]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, core.EffectiveColumn{OriginalName: name, DisplayName: name})
	}
	return out
}

// Query reads one page of a file through its display schema.
//
// Search matches against every physical column, including hidden ones, so a
// row stays findable by values the display schema hides. Rows are keyed by
// display name. A file whose display schema resolves to zero visible columns
// yields an empty page with an explanatory message rather than an error.
func (s *Service) Query(ctx context.Context, filename string, req PageRequest) (*PageResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if !s.scanner.Exists(filename) {
		return nil, core.NewNotFound("file", filename)
	}

	schema, err := s.reconcile.EffectiveSchema(ctx, filename)
	if err != nil {
		return nil, err
	}

	selected := schema.Columns
	if len(req.Columns) > 0 {
		selected = selectColumns(schema.Columns, req.Columns)
	}

	result := &PageResult{
		Filename:       filename,
		Columns:        selected,
		Rows:           []map[string]any{},
		Page:           req.Page,
		PageSize:       req.PageSize,
		HasCustomNames: schema.HasCustomNames,
	}

	if len(selected) == 0 {
		result.Message = "no visible columns configured for this file"
		return result, nil
	}

	physical, err := s.scanner.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}

	scan := scanner.ScanRequest{
		Offset: (req.Page - 1) * req.PageSize,
		Limit:  req.PageSize,
	}
	for _, c := range selected {
		scan.Columns = append(scan.Columns, c.OriginalName)
	}
	if req.Search != "" {
		scan.Search = req.Search
		scan.SearchColumns = physical
	}
	if req.SortBy != "" {
		column, err := resolveSort(selected, req.SortBy)
		if err != nil {
			return nil, err
		}
		scan.Sort = &scanner.SortSpec{Column: column, Descending: req.SortDir == "desc"}
	}

	total, err := s.scanner.Count(ctx, filename, physical, scan)
	if err != nil {
		return nil, err
	}
	result.TotalRows = total
	result.TotalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))

	rows, err := s.scanner.Scan(ctx, filename, physical, scan)
	if err != nil {
		return nil, err
	}

	// Rekey by display name in projection order.
	for _, row := range rows {
		display := make(map[string]any, len(selected))
		for _, c := range selected {
			display[c.DisplayName] = row[c.OriginalName]
		}
		result.Rows = append(result.Rows, display)
	}

	return result, nil
}

// Raw reads one page without the display projection: physical column names,
// no renames, no visibility filtering.
func (s *Service) Raw(ctx context.Context, filename string, req PageRequest) (*PageResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if !s.scanner.Exists(filename) {
		return nil, core.NewNotFound("file", filename)
	}

	physical, err := s.scanner.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}
	typeByName := make(map[string]string, len(physical))
	for _, pc := range physical {
		typeByName[pc.Name] = pc.Type
	}

	var columns []core.EffectiveColumn
	if len(req.Columns) > 0 {
		for _, name := range req.Columns {
			columns = append(columns, core.EffectiveColumn{
				OriginalName: name,
				DisplayName:  name,
				DataType:     typeByName[name],
			})
		}
	} else {
		for _, pc := range physical {
			columns = append(columns, core.EffectiveColumn{
				OriginalName: pc.Name,
				DisplayName:  pc.Name,
				DataType:     pc.Type,
			})
		}
	}

	scan := scanner.ScanRequest{
		Columns: req.Columns,
		Offset:  (req.Page - 1) * req.PageSize,
		Limit:   req.PageSize,
	}
	if req.Search != "" {
		scan.Search = req.Search
		scan.SearchColumns = physical
	}
	if req.SortBy != "" {
		found := false
		for _, pc := range physical {
			if pc.Name == req.SortBy {
				found = true
				break
			}
		}
		if !found {
			return nil, core.NewValidation("unknown sort column %q", req.SortBy)
		}
		scan.Sort = &scanner.SortSpec{Column: req.SortBy, Descending: req.SortDir == "desc"}
	}

	total, err := s.scanner.Count(ctx, filename, physical, scan)
	if err != nil {
		return nil, err
	}

	rows, err := s.scanner.Scan(ctx, filename, physical, scan)
	if err != nil {
		return nil, err
	}

	return &PageResult{
		Filename:   filename,
		Columns:    columns,
		Rows:       rows,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalRows:  total,
		TotalPages: int((total + int64(req.PageSize) - 1) / int64(req.PageSize)),
	}, nil
}
