// Package colmeta manages per-column display metadata: single and bulk
// upserts, export/import of a file's column configuration, and reset.
package colmeta

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// Service wraps the store's column-metadata operations with validation and
// the bulk and transfer flows.
type Service struct {
	store  core.Store
	logger *slog.Logger
}

// NewService creates a column-metadata service. A nil logger discards output.
func NewService(store core.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// Upsert applies a partial patch to one column's metadata, creating the row
// when absent. The bool reports creation.
func (s *Service) Upsert(ctx context.Context, filename, column string, patch core.ColumnMetadataPatch) (*core.ColumnMetadata, bool, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, false, err
	}
	return s.store.UpsertColumnMetadata(ctx, filename, column, patch)
}

// List returns the stored column metadata for a file.
func (s *Service) List(ctx context.Context, filename string, visibleOnly bool) ([]*core.ColumnMetadata, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, err
	}
	return s.store.ListColumnMetadata(ctx, filename, visibleOnly)
}

// BulkItem is one column patch inside a bulk request.
type BulkItem struct {
	ColumnName string                   `json:"column_name"`
	Patch      core.ColumnMetadataPatch `json:"patch"`
}

// BulkItemResult reports the outcome for one bulk item.
type BulkItemResult struct {
	ColumnName string `json:"column_name"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

// BulkResult summarizes a bulk upsert. Failed items never roll back the
// items that succeeded.
type BulkResult struct {
	Filename  string           `json:"filename"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// PartialFailure reports whether some items failed while others succeeded.
func (r *BulkResult) PartialFailure() bool {
	return r.Failed > 0 && r.Succeeded > 0
}

// BulkUpsert applies each item independently. One malformed item fails alone;
// the rest of the batch still lands.
func (s *Service) BulkUpsert(ctx context.Context, filename string, items []BulkItem) (*BulkResult, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, core.NewValidation("bulk request has no items")
	}

	result := &BulkResult{Filename: filename}
	for _, item := range items {
		_, created, err := s.store.UpsertColumnMetadata(ctx, filename, item.ColumnName, item.Patch)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BulkItemResult{
				ColumnName: item.ColumnName,
				Error:      err.Error(),
			})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BulkItemResult{
			ColumnName: item.ColumnName,
			Created:    created,
		})
	}

	s.logger.Info("bulk column upsert",
		"filename", filename, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// ExportDocument carries one file's full column configuration for transfer
// between environments.
type ExportDocument struct {
	ExportID   string                 `json:"export_id"`
	Filename   string                 `json:"filename"`
	ExportedAt time.Time              `json:"exported_at"`
	Columns    []*core.ColumnMetadata `json:"columns"`
}

// Export snapshots a file's column metadata. A file with no stored rows has
// nothing to export and is NotFound.
func (s *Service) Export(ctx context.Context, filename string) (*ExportDocument, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, err
	}

	columns, err := s.store.ListColumnMetadata(ctx, filename, false)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, core.NewNotFound("column metadata", filename)
	}

	return &ExportDocument{
		ExportID:   uuid.NewString(),
		Filename:   filename,
		ExportedAt: time.Now().UTC(),
		Columns:    columns,
	}, nil
}

// ImportResult summarizes an import. Failed counts items that did not land;
// Results carries the per-column outcomes.
type ImportResult struct {
	Filename string           `json:"filename"`
	Created  int              `json:"created"`
	Updated  int              `json:"updated"`
	Failed   int              `json:"failed"`
	Results  []BulkItemResult `json:"results"`
}

// Import applies an exported configuration to a file. The document's filename
// must match the target exactly; importing another file's configuration is
// rejected outright rather than silently rekeyed. Columns apply with the same
// isolation as a bulk upsert: one bad column fails alone and the rest land.
func (s *Service) Import(ctx context.Context, filename string, doc ExportDocument) (*ImportResult, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if doc.Filename != filename {
		return nil, core.NewValidation("export document is for %q, not %q", doc.Filename, filename)
	}
	if len(doc.Columns) == 0 {
		return nil, core.NewValidation("export document has no columns")
	}

	items := make([]BulkItem, 0, len(doc.Columns))
	for _, col := range doc.Columns {
		if col == nil {
			items = append(items, BulkItem{})
			continue
		}
		items = append(items, BulkItem{
			ColumnName: col.OriginalColumnName,
			Patch: core.ColumnMetadataPatch{
				DisplayName: &col.DisplayName,
				Description: &col.Description,
				DataType:    &col.DataType,
				IsVisible:   &col.IsVisible,
				SortOrder:   &col.SortOrder,
			},
		})
	}

	bulk, err := s.BulkUpsert(ctx, filename, items)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Filename: filename, Results: bulk.Results}
	for _, r := range bulk.Results {
		switch {
		case r.Error != "":
			result.Failed++
		case r.Created:
			result.Created++
		default:
			result.Updated++
		}
	}

	s.logger.Info("column metadata imported",
		"filename", filename, "created", result.Created, "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

// Reset removes every stored column row for a file, returning the display
// schema to physical passthrough.
func (s *Service) Reset(ctx context.Context, filename string) (int64, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return 0, err
	}
	return s.store.ResetColumnMetadata(ctx, filename)
}
