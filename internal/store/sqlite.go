// Package store implements the metadata store adapter over SQLite.
// It persists file-level business metadata, the append-only change history,
// per-column display metadata, and table relationships.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/parqhub/parqhub/pkg/core"
)

// SQLiteStore implements core.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store instance.
// A nil logger discards all output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	} else {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// translateError maps driver errors onto the store error taxonomy so raw
// sqlite errors never cross the adapter boundary.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint") {
		return core.NewConflict("%s: record already exists", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// encodeTags serializes a tag set as a JSON array. nil encodes as [].
func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeTags parses a stored JSON tag array; malformed values decode as empty.
func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

// tagsOverlap reports whether the two tag sets share at least one element.
func tagsOverlap(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

const fileMetadataColumns = `id, filename, title, description, responsible, frequency,
	permissions, tags, file_size_mb, row_count, column_count, created_at, updated_at`

// scanFileMetadata scans one file_metadata row from a row scanner.
func scanFileMetadata(scan func(dest ...any) error) (*core.FileMetadata, error) {
	m := &core.FileMetadata{}
	var description, responsible, frequency sql.NullString
	var tags string
	var sizeMB sql.NullFloat64
	var rowCount sql.NullInt64
	var columnCount sql.NullInt64

	err := scan(&m.ID, &m.Filename, &m.Title, &description, &responsible, &frequency,
		&m.Permissions, &tags, &sizeMB, &rowCount, &columnCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.Description = description.String
	m.Responsible = responsible.String
	m.Frequency = frequency.String
	m.Tags = decodeTags(tags)
	if sizeMB.Valid {
		m.FileSizeMB = &sizeMB.Float64
	}
	if rowCount.Valid {
		m.RowCount = &rowCount.Int64
	}
	if columnCount.Valid {
		c := int(columnCount.Int64)
		m.ColumnCount = &c
	}
	return m, nil
}

// CreateFileMetadata inserts a new business-metadata record. A duplicate
// filename surfaces as a ConflictError.
func (s *SQLiteStore) CreateFileMetadata(ctx context.Context, in core.FileMetadataCreate) (*core.FileMetadata, error) {
	if in.Filename == "" {
		return nil, core.NewValidation("filename is required")
	}
	if in.Title == "" {
		return nil, core.NewValidation("title is required")
	}
	permissions := in.Permissions
	if permissions == "" {
		permissions = core.DefaultPermissions
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO file_metadata (filename, title, description, responsible, frequency, permissions, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Filename, in.Title, nullable(in.Description), nullable(in.Responsible),
		nullable(in.Frequency), permissions, encodeTags(in.Tags), now, now,
	)
	if err != nil {
		return nil, translateError("create file metadata", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create file metadata: %w", err)
	}

	s.logger.Debug("file metadata created", "filename", in.Filename, "id", id)
	return s.GetFileMetadata(ctx, in.Filename)
}

// GetFileMetadata retrieves the record for a filename, or (nil, nil) when
// absent.
func (s *SQLiteStore) GetFileMetadata(ctx context.Context, filename string) (*core.FileMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileMetadataColumns+` FROM file_metadata WHERE filename = ?`, filename)

	m, err := scanFileMetadata(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file metadata: %w", err)
	}
	return m, nil
}

// ListFileMetadata returns all records ordered by updated_at descending.
func (s *SQLiteStore) ListFileMetadata(ctx context.Context) ([]*core.FileMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileMetadataColumns+` FROM file_metadata ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list file metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.FileMetadata
	for rows.Next() {
		m, err := scanFileMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list file metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchFileMetadata filters records by the query. The free-text term matches
// title, description and filename case-insensitively; responsible and
// permissions match exactly; tags match on set overlap (applied after the SQL
// pass since SQLite has no array type).
func (s *SQLiteStore) SearchFileMetadata(ctx context.Context, q core.MetadataQuery) ([]*core.FileMetadata, error) {
	query := `SELECT ` + fileMetadataColumns + ` FROM file_metadata`
	var conds []string
	var args []any

	if q.Term != "" {
		pattern := "%" + strings.ToLower(q.Term) + "%"
		conds = append(conds, `(lower(title) LIKE ? OR lower(coalesce(description, '')) LIKE ? OR lower(filename) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Responsible != "" {
		conds = append(conds, `responsible = ?`)
		args = append(args, q.Responsible)
	}
	if q.Permissions != "" {
		conds = append(conds, `permissions = ?`)
		args = append(args, q.Permissions)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search file metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.FileMetadata
	for rows.Next() {
		m, err := scanFileMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("search file metadata: %w", err)
		}
		if len(q.Tags) > 0 && !tagsOverlap(m.Tags, q.Tags) {
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateFileMetadata applies a partial patch and records one history row per
// field whose value actually changed. Returns (nil, nil) when no record
// exists for the filename. An empty patch is a no-op.
func (s *SQLiteStore) UpdateFileMetadata(ctx context.Context, filename string, patch core.FileMetadataPatch, changedBy string) (*core.FileMetadata, error) {
	current, err := s.GetFileMetadata(ctx, filename)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	if patch.IsEmpty() {
		return current, nil
	}

	type change struct {
		field    string
		old, new string
		set      string
		arg      any
	}
	var changes []change

	addString := func(field string, old string, val *string, column string) {
		if val == nil {
			return
		}
		changes = append(changes, change{field: field, old: old, new: *val, set: column + " = ?", arg: nullable(*val)})
	}

	addString("title", current.Title, patch.Title, "title")
	addString("description", current.Description, patch.Description, "description")
	addString("responsible", current.Responsible, patch.Responsible, "responsible")
	addString("frequency", current.Frequency, patch.Frequency, "frequency")
	addString("permissions", current.Permissions, patch.Permissions, "permissions")
	if patch.Tags != nil {
		changes = append(changes, change{
			field: "tags",
			old:   encodeTags(current.Tags),
			new:   encodeTags(*patch.Tags),
			set:   "tags = ?",
			arg:   encodeTags(*patch.Tags),
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update file metadata: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var sets []string
	var args []any
	for _, c := range changes {
		sets = append(sets, c.set)
		args = append(args, c.arg)

		// History only on real change; identical values leave no trace.
		if c.old == c.new {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO metadata_history (file_id, field_changed, old_value, new_value, changed_by, changed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			current.ID, c.field, nullable(c.old), nullable(c.new), nullable(changedBy), now,
		)
		if err != nil {
			return nil, translateError("record history", err)
		}
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, filename)

	_, err = tx.ExecContext(ctx,
		`UPDATE file_metadata SET `+strings.Join(sets, ", ")+` WHERE filename = ?`, args...)
	if err != nil {
		return nil, translateError("update file metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update file metadata: %w", err)
	}

	s.logger.Debug("file metadata updated", "filename", filename, "changed_by", changedBy)
	return s.GetFileMetadata(ctx, filename)
}

// UpdateFileStats overwrites the cached technical statistics. Recomputing and
// overwriting is always safe, so this bypasses the change history.
func (s *SQLiteStore) UpdateFileStats(ctx context.Context, filename string, sizeMB float64, rowCount int64, columnCount int) (*core.FileMetadata, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE file_metadata SET file_size_mb = ?, row_count = ?, column_count = ?, updated_at = ?
		 WHERE filename = ?`,
		sizeMB, rowCount, columnCount, time.Now().UTC(), filename,
	)
	if err != nil {
		return nil, translateError("update file stats", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, nil
	}
	return s.GetFileMetadata(ctx, filename)
}

// DeleteFileMetadata removes the record and, via cascade, its history.
// Column metadata is keyed independently and is deliberately left in place.
func (s *SQLiteStore) DeleteFileMetadata(ctx context.Context, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM file_metadata WHERE filename = ?`, filename)
	if err != nil {
		return false, translateError("delete file metadata", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// CountFileMetadata returns the number of curated records.
func (s *SQLiteStore) CountFileMetadata(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_metadata`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count file metadata: %w", err)
	}
	return n, nil
}

// LastUpdatedAt returns the most recent updated_at across all records, or nil
// when the catalog is empty.
func (s *SQLiteStore) LastUpdatedAt(ctx context.Context) (*time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM file_metadata`).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("last updated: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}

// UniqueResponsibles returns the distinct responsible parties, sorted.
func (s *SQLiteStore) UniqueResponsibles(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "responsible")
}

// UniquePermissions returns the distinct permission tags, sorted.
func (s *SQLiteStore) UniquePermissions(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "permissions")
}

func (s *SQLiteStore) distinctColumn(ctx context.Context, column string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM file_metadata WHERE `+column+` IS NOT NULL AND `+column+` != '' ORDER BY `+column)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("distinct %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UniqueTags flattens every stored tag array into one sorted, deduplicated
// list.
func (s *SQLiteStore) UniqueTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM file_metadata`)
	if err != nil {
		return nil, fmt.Errorf("unique tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	set := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("unique tags: %w", err)
		}
		for _, t := range decodeTags(raw) {
			set[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// nullable converts an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteStore implements core.Store.
var _ core.Store = (*SQLiteStore)(nil)
