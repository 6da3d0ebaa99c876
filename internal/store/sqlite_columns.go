package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/parqhub/parqhub/pkg/core"
)

const columnMetadataColumns = `id, filename, original_column_name, display_name, description,
	data_type, is_visible, sort_order, created_at, updated_at`

func scanColumnMetadata(scan func(dest ...any) error) (*core.ColumnMetadata, error) {
	c := &core.ColumnMetadata{}
	var displayName, description, dataType sql.NullString

	err := scan(&c.ID, &c.Filename, &c.OriginalColumnName, &displayName, &description,
		&dataType, &c.IsVisible, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.DisplayName = displayName.String
	c.Description = description.String
	c.DataType = dataType.String
	return c, nil
}

// ListColumnMetadata returns the stored column rows for a file ordered by
// sort_order, then original name. visibleOnly restricts to is_visible rows.
func (s *SQLiteStore) ListColumnMetadata(ctx context.Context, filename string, visibleOnly bool) ([]*core.ColumnMetadata, error) {
	query := `SELECT ` + columnMetadataColumns + ` FROM column_metadata WHERE filename = ?`
	if visibleOnly {
		query += ` AND is_visible = 1`
	}
	query += ` ORDER BY sort_order, original_column_name`

	rows, err := s.db.QueryContext(ctx, query, filename)
	if err != nil {
		return nil, fmt.Errorf("list column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.ColumnMetadata
	for rows.Next() {
		c, err := scanColumnMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list column metadata: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetColumnMetadata retrieves one (filename, column) row, or (nil, nil) when
// absent.
func (s *SQLiteStore) GetColumnMetadata(ctx context.Context, filename, column string) (*core.ColumnMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columnMetadataColumns+` FROM column_metadata
		 WHERE filename = ? AND original_column_name = ?`, filename, column)

	c, err := scanColumnMetadata(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get column metadata: %w", err)
	}
	return c, nil
}

// UpsertColumnMetadata applies a partial patch to a (filename, column) row,
// creating it when absent. On create, unset fields take their defaults: the
// display name falls back to the original name, visibility to true and sort
// order to zero. The returned bool reports whether a row was created.
func (s *SQLiteStore) UpsertColumnMetadata(ctx context.Context, filename, column string, patch core.ColumnMetadataPatch) (*core.ColumnMetadata, bool, error) {
	if filename == "" {
		return nil, false, core.NewValidation("filename is required")
	}
	if column == "" {
		return nil, false, core.NewValidation("column name is required")
	}

	current, err := s.GetColumnMetadata(ctx, filename, column)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()

	if current == nil {
		displayName := column
		if patch.DisplayName != nil {
			displayName = *patch.DisplayName
		}
		description := ""
		if patch.Description != nil {
			description = *patch.Description
		}
		dataType := ""
		if patch.DataType != nil {
			dataType = *patch.DataType
		}
		isVisible := true
		if patch.IsVisible != nil {
			isVisible = *patch.IsVisible
		}
		sortOrder := 0
		if patch.SortOrder != nil {
			sortOrder = *patch.SortOrder
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO column_metadata (filename, original_column_name, display_name, description, data_type, is_visible, sort_order, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			filename, column, nullable(displayName), nullable(description),
			nullable(dataType), isVisible, sortOrder, now, now,
		)
		if err != nil {
			return nil, false, translateError("create column metadata", err)
		}

		created, err := s.GetColumnMetadata(ctx, filename, column)
		return created, true, err
	}

	var sets []string
	var args []any
	if patch.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, nullable(*patch.DisplayName))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullable(*patch.Description))
	}
	if patch.DataType != nil {
		sets = append(sets, "data_type = ?")
		args = append(args, nullable(*patch.DataType))
	}
	if patch.IsVisible != nil {
		sets = append(sets, "is_visible = ?")
		args = append(args, *patch.IsVisible)
	}
	if patch.SortOrder != nil {
		sets = append(sets, "sort_order = ?")
		args = append(args, *patch.SortOrder)
	}
	if len(sets) == 0 {
		return current, false, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, filename, column)

	_, err = s.db.ExecContext(ctx,
		`UPDATE column_metadata SET `+strings.Join(sets, ", ")+`
		 WHERE filename = ? AND original_column_name = ?`, args...)
	if err != nil {
		return nil, false, translateError("update column metadata", err)
	}

	updated, err := s.GetColumnMetadata(ctx, filename, column)
	return updated, false, err
}

// ResetColumnMetadata deletes every column row for a file and returns the
// number removed.
func (s *SQLiteStore) ResetColumnMetadata(ctx context.Context, filename string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM column_metadata WHERE filename = ?`, filename)
	if err != nil {
		return 0, translateError("reset column metadata", err)
	}
	affected, _ := res.RowsAffected()
	s.logger.Debug("column metadata reset", "filename", filename, "deleted", affected)
	return affected, nil
}
