package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parqhub/parqhub/pkg/core"
)

const historyColumns = `h.id, h.file_id, h.field_changed, h.old_value, h.new_value, h.changed_by, h.changed_at`

func scanHistory(scan func(dest ...any) error) (*core.MetadataHistory, error) {
	h := &core.MetadataHistory{}
	var oldValue, newValue, changedBy sql.NullString

	err := scan(&h.ID, &h.FileID, &h.FieldChanged, &oldValue, &newValue, &changedBy, &h.ChangedAt)
	if err != nil {
		return nil, err
	}

	h.OldValue = oldValue.String
	h.NewValue = newValue.String
	h.ChangedBy = changedBy.String
	return h, nil
}

// GetHistory returns the change log for a filename, newest first.
func (s *SQLiteStore) GetHistory(ctx context.Context, filename string) ([]*core.MetadataHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+`
		 FROM metadata_history h
		 JOIN file_metadata f ON f.id = h.file_id
		 WHERE f.filename = ?
		 ORDER BY h.changed_at DESC, h.id DESC`, filename)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.MetadataHistory
	for rows.Next() {
		h, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// RecentHistory returns changes across all files since the given time, newest
// first, capped at limit.
func (s *SQLiteStore) RecentHistory(ctx context.Context, since time.Time, limit int) ([]*core.MetadataHistory, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+`
		 FROM metadata_history h
		 WHERE h.changed_at >= ?
		 ORDER BY h.changed_at DESC, h.id DESC
		 LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.MetadataHistory
	for rows.Next() {
		h, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("recent history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
