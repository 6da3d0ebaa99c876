// Package reconcile merges the two views ParqHub has of every dataset: the
// physical parquet file on disk and the curated metadata in the catalog.
// Neither side owns the truth; this package resolves what a reader should
// actually see and detects drift between the two.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// Service resolves effective schemas, builds the combined file view and runs
// drift synchronization.
type Service struct {
	store   core.Store
	scanner *scanner.Scanner
	logger  *slog.Logger
}

// NewService creates a reconciliation service. A nil logger discards output.
func NewService(store core.Store, sc *scanner.Scanner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, scanner: sc, logger: logger}
}

// EffectiveSchema resolves the display schema for a file.
//
// Without stored column metadata the physical schema passes through untouched
// and every column is visible. Once any column metadata exists, visibility
// becomes opt-in: only stored rows that are visible and still physically
// present appear, under their display names and in their stored order.
func (s *Service) EffectiveSchema(ctx context.Context, filename string) (*core.EffectiveSchema, error) {
	physical, err := s.scanner.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListColumnMetadata(ctx, filename, false)
	if err != nil {
		return nil, err
	}

	schema := &core.EffectiveSchema{Filename: filename, Columns: []core.EffectiveColumn{}}

	if len(stored) == 0 {
		for _, pc := range physical {
			schema.Columns = append(schema.Columns, core.EffectiveColumn{
				OriginalName: pc.Name,
				DisplayName:  pc.Name,
				DataType:     pc.Type,
			})
		}
		return schema, nil
	}

	schema.HasCustomNames = true
	types := make(map[string]string, len(physical))
	for _, pc := range physical {
		types[pc.Name] = pc.Type
	}

	for _, cm := range stored {
		if !cm.IsVisible {
			continue
		}
		physType, present := types[cm.OriginalColumnName]
		if !present {
			// Stored row for a column the file no longer has.
			continue
		}
		dataType := cm.DataType
		if dataType == "" {
			dataType = physType
		}
		schema.Columns = append(schema.Columns, core.EffectiveColumn{
			OriginalName: cm.OriginalColumnName,
			DisplayName:  cm.EffectiveDisplayName(),
			Description:  cm.Description,
			DataType:     dataType,
		})
	}
	return schema, nil
}

// ColumnDetail is one effective column enriched with physical statistics.
type ColumnDetail struct {
	core.EffectiveColumn
	NullCount     *int64 `json:"null_count,omitempty"`
	DistinctCount *int64 `json:"distinct_count,omitempty"`
	StatsError    string `json:"stats_error,omitempty"`
}

// SchemaWithStats resolves the effective schema and attaches null and
// distinct counts per column. A stats failure for one column is recorded on
// that column rather than failing the whole schema.
func (s *Service) SchemaWithStats(ctx context.Context, filename string) (string, []ColumnDetail, bool, error) {
	schema, err := s.EffectiveSchema(ctx, filename)
	if err != nil {
		return "", nil, false, err
	}

	details := make([]ColumnDetail, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		d := ColumnDetail{EffectiveColumn: col}
		stats, err := s.scanner.ColumnStats(ctx, filename, col.OriginalName)
		if err != nil {
			s.logger.Warn("column stats failed", "filename", filename, "column", col.OriginalName, "error", err)
			d.StatsError = err.Error()
		} else {
			d.NullCount = &stats.NullCount
			d.DistinctCount = &stats.DistinctCount
		}
		details = append(details, d)
	}
	return schema.Filename, details, schema.HasCustomNames, nil
}
