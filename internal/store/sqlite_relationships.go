package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/parqhub/parqhub/pkg/core"
)

const relationshipColumns = `id, project_name, from_filename, to_filename, from_column, to_column,
	cardinality, cross_filter_direction, is_active, created_at`

func scanRelationship(scan func(dest ...any) error) (*core.Relationship, error) {
	r := &core.Relationship{}
	var project sql.NullString

	err := scan(&r.ID, &project, &r.FromFilename, &r.ToFilename, &r.FromColumn, &r.ToColumn,
		&r.Cardinality, &r.CrossFilterDirection, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.ProjectName = project.String
	return r, nil
}

// CreateRelationship persists a new table relationship.
func (s *SQLiteStore) CreateRelationship(ctx context.Context, rel core.Relationship) (*core.Relationship, error) {
	if rel.FromFilename == "" || rel.ToFilename == "" {
		return nil, core.NewValidation("from_filename and to_filename are required")
	}
	if rel.FromColumn == "" || rel.ToColumn == "" {
		return nil, core.NewValidation("from_column and to_column are required")
	}
	if rel.Cardinality == "" {
		rel.Cardinality = "1:N"
	}
	if !slices.Contains(core.ValidCardinalities, rel.Cardinality) {
		return nil, core.NewValidation("invalid cardinality %q", rel.Cardinality)
	}
	if rel.CrossFilterDirection == "" {
		rel.CrossFilterDirection = "single"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (project_name, from_filename, to_filename, from_column, to_column, cardinality, cross_filter_direction, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullable(rel.ProjectName), rel.FromFilename, rel.ToFilename, rel.FromColumn, rel.ToColumn,
		rel.Cardinality, rel.CrossFilterDirection, true, time.Now().UTC(),
	)
	if err != nil {
		return nil, translateError("create relationship", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id)
	return scanRelationship(row.Scan)
}

// ListRelationships returns active relationships, optionally scoped to one
// project.
func (s *SQLiteStore) ListRelationships(ctx context.Context, projectName string) ([]*core.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE is_active = 1`
	var args []any
	if projectName != "" {
		query += ` AND project_name = ?`
		args = append(args, projectName)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list relationships: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRelationship removes a relationship by id.
func (s *SQLiteStore) DeleteRelationship(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return false, translateError("delete relationship", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
