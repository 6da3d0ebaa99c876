package reconcile

import (
	"context"
	"sort"
	"strings"

	"github.com/parqhub/parqhub/pkg/core"
)

// GetCombined merges both halves of one file's view. Files that exist only on
// disk come back with default permissions and no curated fields; records whose
// file was deleted keep their metadata with the physical half empty. A name
// known to neither side is NotFound.
func (s *Service) GetCombined(ctx context.Context, filename string) (*core.CombinedFileInfo, error) {
	meta, err := s.store.GetFileMetadata(ctx, filename)
	if err != nil {
		return nil, err
	}

	var physical *core.PhysicalFileInfo
	if s.scanner.Exists(filename) {
		physical, err = s.scanner.FileInfo(ctx, filename)
		if err != nil {
			return nil, err
		}
	}

	if physical == nil && meta == nil {
		return nil, core.NewNotFound("file", filename)
	}
	return mergeCombined(filename, physical, meta), nil
}

// ListCombined returns the union of files on disk and curated records, merged
// and ordered by modification time descending. Entries without a physical
// file have no modification time and sort last, by name.
func (s *Service) ListCombined(ctx context.Context) ([]*core.CombinedFileInfo, error) {
	files, err := s.scanner.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListFileMetadata(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*core.FileMetadata, len(records))
	names := make([]string, 0, len(files)+len(records))
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		names = append(names, f)
		seen[f] = true
	}
	for _, r := range records {
		byName[r.Filename] = r
		if !seen[r.Filename] {
			names = append(names, r.Filename)
			seen[r.Filename] = true
		}
	}

	out := make([]*core.CombinedFileInfo, 0, len(names))
	for _, name := range names {
		var physical *core.PhysicalFileInfo
		if s.scanner.Exists(name) {
			physical, err = s.scanner.FileInfo(ctx, name)
			if err != nil {
				// A file that breaks mid-listing should not hide the rest
				// of the catalog.
				s.logger.Warn("skipping unreadable file", "filename", name, "error", err)
				if byName[name] == nil {
					continue
				}
				physical = nil
			}
		}
		out = append(out, mergeCombined(name, physical, byName[name]))
	}

	sortCombined(out)
	return out, nil
}

// SearchCombined filters the combined view. Metadata matches come from the
// store's search; on top of that, a free-text term also matches raw filenames
// on disk so uncurated files remain findable. Results are deduplicated by
// name.
func (s *Service) SearchCombined(ctx context.Context, q core.MetadataQuery) ([]*core.CombinedFileInfo, error) {
	matches, err := s.store.SearchFileMetadata(ctx, q)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Filename)
		seen[m.Filename] = true
	}

	// Filename fallback applies only to the free-text term; structured
	// filters have nothing to match against for uncurated files.
	if q.Term != "" && q.Responsible == "" && q.Permissions == "" && len(q.Tags) == 0 {
		files, err := s.scanner.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		term := strings.ToLower(q.Term)
		for _, f := range files {
			if !seen[f] && strings.Contains(strings.ToLower(f), term) {
				names = append(names, f)
				seen[f] = true
			}
		}
	}

	out := make([]*core.CombinedFileInfo, 0, len(names))
	for _, name := range names {
		combined, err := s.GetCombined(ctx, name)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, combined)
	}

	sortCombined(out)
	return out, nil
}

func mergeCombined(name string, physical *core.PhysicalFileInfo, meta *core.FileMetadata) *core.CombinedFileInfo {
	c := &core.CombinedFileInfo{
		Name:        name,
		Permissions: core.DefaultPermissions,
		Tags:        []string{},
		Columns:     []core.PhysicalColumn{},
	}

	if physical != nil {
		c.SizeBytes = physical.SizeBytes
		c.SizeMB = physical.SizeMB
		modified := physical.Modified
		c.Modified = &modified
		rowCount := physical.RowCount
		c.RowCount = &rowCount
		colCount := physical.ColumnCount
		c.ColumnCount = &colCount
		c.Columns = physical.Columns
	}

	if meta != nil {
		c.ID = &meta.ID
		c.Title = &meta.Title
		if meta.Description != "" {
			c.Description = &meta.Description
		}
		if meta.Responsible != "" {
			c.Responsible = &meta.Responsible
		}
		if meta.Frequency != "" {
			c.Frequency = &meta.Frequency
		}
		c.Permissions = meta.Permissions
		c.Tags = meta.Tags
		createdAt := meta.CreatedAt
		c.CreatedAt = &createdAt
		updatedAt := meta.UpdatedAt
		c.UpdatedAt = &updatedAt

		// Cached stats fill in for a deleted physical file.
		if physical == nil {
			c.RowCount = meta.RowCount
			c.ColumnCount = meta.ColumnCount
			if meta.FileSizeMB != nil {
				c.SizeMB = *meta.FileSizeMB
			}
		}
	}

	return c
}

// sortCombined orders by modification time descending with entries lacking a
// time last, ties broken by name.
func sortCombined(list []*core.CombinedFileInfo) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.Modified != nil && b.Modified != nil:
			if !a.Modified.Equal(*b.Modified) {
				return a.Modified.After(*b.Modified)
			}
			return a.Name < b.Name
		case a.Modified != nil:
			return true
		case b.Modified != nil:
			return false
		default:
			return a.Name < b.Name
		}
	})
}
