package reconcile

import (
	"context"

	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// SyncColumns reconciles stored column metadata with the file's physical
// schema. Physical columns with no stored row get one created with defaults;
// visible stored rows whose column disappeared are hidden, not deleted, so
// display names survive a column coming back. Running it twice in a row
// reports zero created and zero hidden the second time.
func (s *Service) SyncColumns(ctx context.Context, filename string) (*core.ColumnSyncResult, error) {
	if err := scanner.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if !s.scanner.Exists(filename) {
		return nil, core.NewNotFound("file", filename)
	}

	physical, err := s.scanner.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListColumnMetadata(ctx, filename, false)
	if err != nil {
		return nil, err
	}

	storedByName := make(map[string]*core.ColumnMetadata, len(stored))
	for _, cm := range stored {
		storedByName[cm.OriginalColumnName] = cm
	}
	physicalByName := make(map[string]string, len(physical))
	for _, pc := range physical {
		physicalByName[pc.Name] = pc.Type
	}

	result := &core.ColumnSyncResult{Filename: filename, TotalPhysical: len(physical)}

	// New rows are appended after the existing ones in physical discovery
	// order, so an uncurated file keeps its on-disk column order.
	nextOrder := len(stored)

	for _, pc := range physical {
		existing, ok := storedByName[pc.Name]
		if !ok {
			dataType := pc.Type
			order := nextOrder
			if _, _, err := s.store.UpsertColumnMetadata(ctx, filename, pc.Name, core.ColumnMetadataPatch{
				DataType:  &dataType,
				SortOrder: &order,
			}); err != nil {
				return nil, err
			}
			nextOrder++
			result.Created++
			continue
		}
		// Keep the recorded type current; this is not a drift event.
		if existing.DataType != pc.Type {
			dataType := pc.Type
			if _, _, err := s.store.UpsertColumnMetadata(ctx, filename, pc.Name, core.ColumnMetadataPatch{
				DataType: &dataType,
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, cm := range stored {
		if _, present := physicalByName[cm.OriginalColumnName]; present {
			continue
		}
		if !cm.IsVisible {
			continue
		}
		hidden := false
		if _, _, err := s.store.UpsertColumnMetadata(ctx, filename, cm.OriginalColumnName, core.ColumnMetadataPatch{
			IsVisible: &hidden,
		}); err != nil {
			return nil, err
		}
		result.Hidden++
	}

	if result.Created > 0 || result.Hidden > 0 {
		s.logger.Info("column drift synchronized",
			"filename", filename, "created", result.Created, "hidden", result.Hidden)
	}
	return result, nil
}

// SyncStats recomputes a curated file's technical statistics from disk and
// stores them. Both the metadata record and the physical file must exist.
func (s *Service) SyncStats(ctx context.Context, filename string) (*core.FileMetadata, error) {
	meta, err := s.store.GetFileMetadata(ctx, filename)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, core.NewNotFound("metadata", filename)
	}
	if !s.scanner.Exists(filename) {
		return nil, core.NewNotFound("file", filename)
	}

	info, err := s.scanner.FileInfo(ctx, filename)
	if err != nil {
		return nil, err
	}

	return s.store.UpdateFileStats(ctx, filename, info.SizeMB, info.RowCount, info.ColumnCount)
}

// StatsSyncReport summarizes one catalog-wide stats pass.
type StatsSyncReport struct {
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// SyncAllStats refreshes statistics for every file on disk that has a
// metadata record. Uncurated files are skipped, and one broken file does not
// stop the pass.
func (s *Service) SyncAllStats(ctx context.Context) (*StatsSyncReport, error) {
	files, err := s.scanner.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatsSyncReport{}
	for _, f := range files {
		meta, err := s.store.GetFileMetadata(ctx, f)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			report.Skipped++
			continue
		}
		if _, err := s.SyncStats(ctx, f); err != nil {
			s.logger.Warn("stats sync failed", "filename", f, "error", err)
			report.Failed = append(report.Failed, f)
			continue
		}
		report.Updated++
	}

	s.logger.Info("stats sync complete",
		"updated", report.Updated, "skipped", report.Skipped, "failed", len(report.Failed))
	return report, nil
}
