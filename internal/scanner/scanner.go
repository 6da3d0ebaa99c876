// Package scanner is the physical-file engine. It discovers parquet files in
// the data directory and answers schema, statistics and data-page queries by
// running DuckDB directly against the files. Nothing here is cached: every
// call reflects the file as it is on disk right now.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/parqhub/parqhub/pkg/core"
)

// Scanner runs DuckDB queries against parquet files under a data directory.
//
// Each operation opens a short-lived in-memory DuckDB handle and closes it
// before returning; the parquet file itself is the only shared state, and
// reads against it are safe to run concurrently.
type Scanner struct {
	dataDir string
	logger  *slog.Logger
}

// New creates a Scanner rooted at dataDir. A nil logger discards all output.
func New(dataDir string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{dataDir: dataDir, logger: logger}
}

// DataDir returns the scanned directory.
func (s *Scanner) DataDir() string { return s.dataDir }

// ValidateFilename rejects names that could escape the data directory or that
// are not parquet files. Every externally supplied filename passes through
// here before it is joined onto the data directory.
func ValidateFilename(name string) error {
	if name == "" {
		return core.NewValidation("filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return core.NewValidation("invalid filename %q: path separators are not allowed", name)
	}
	if strings.Contains(name, "..") {
		return core.NewValidation("invalid filename %q", name)
	}
	if !strings.HasSuffix(name, ".parquet") {
		return core.NewValidation("invalid filename %q: must end with .parquet", name)
	}
	return nil
}

// path joins a validated filename onto the data directory.
func (s *Scanner) path(filename string) string {
	return filepath.Join(s.dataDir, filename)
}

// openDB opens a fresh in-memory DuckDB handle. The caller closes it.
func openDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return db, nil
}

// escapePath escapes a filesystem path for use as a DuckDB string literal.
// Paths come from our own data directory plus a validated filename, so the
// only character needing care is the quote itself.
func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

// quoteIdent quotes an identifier for DuckDB. Identifiers are only ever taken
// from a schema we read back from the file, never from raw user input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ListFiles returns the parquet filenames present in the data directory,
// sorted. A missing data directory yields an empty list.
func (s *Scanner) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".parquet") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the parquet file is present on disk.
func (s *Scanner) Exists(filename string) bool {
	if err := ValidateFilename(filename); err != nil {
		return false
	}
	info, err := os.Stat(s.path(filename))
	return err == nil && !info.IsDir()
}

// Schema reads the column names and types of a parquet file.
func (s *Scanner) Schema(ctx context.Context, filename string) ([]core.PhysicalColumn, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	db, err := openDB()
	if err != nil {
		return nil, core.NewEngineError(filename, "schema", err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("DESCRIBE SELECT * FROM '%s'", escapePath(s.path(filename)))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.NewEngineError(filename, "schema", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.PhysicalColumn
	for rows.Next() {
		var col core.PhysicalColumn
		var null, key, def, extra sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &null, &key, &def, &extra); err != nil {
			return nil, core.NewEngineError(filename, "schema", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewEngineError(filename, "schema", err)
	}
	return columns, nil
}

// RowCount counts the rows in a parquet file.
func (s *Scanner) RowCount(ctx context.Context, filename string) (int64, error) {
	if err := ValidateFilename(filename); err != nil {
		return 0, err
	}

	db, err := openDB()
	if err != nil {
		return 0, core.NewEngineError(filename, "row count", err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("SELECT COUNT(*) FROM '%s'", escapePath(s.path(filename)))
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, core.NewEngineError(filename, "row count", err)
	}
	return n, nil
}

// FileInfo builds the full technical view of one file: size and modification
// time from the filesystem, schema and row count from DuckDB.
func (s *Scanner) FileInfo(ctx context.Context, filename string) (*core.PhysicalFileInfo, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	stat, err := os.Stat(s.path(filename))
	if os.IsNotExist(err) {
		return nil, core.NewNotFound("file", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", filename, err)
	}

	columns, err := s.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}
	rowCount, err := s.RowCount(ctx, filename)
	if err != nil {
		return nil, err
	}

	return &core.PhysicalFileInfo{
		Name:        filename,
		SizeBytes:   stat.Size(),
		SizeMB:      float64(stat.Size()) / (1024 * 1024),
		Modified:    stat.ModTime().UTC(),
		RowCount:    rowCount,
		ColumnCount: len(columns),
		Columns:     columns,
	}, nil
}

// ColumnStats computes null and distinct counts for one physical column. The
// column must come from the file's schema.
func (s *Scanner) ColumnStats(ctx context.Context, filename, column string) (*core.ColumnStats, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	schema, err := s.Schema(ctx, filename)
	if err != nil {
		return nil, err
	}
	if !hasColumn(schema, column) {
		return nil, core.NewValidation("unknown column %q in %s", column, filename)
	}

	db, err := openDB()
	if err != nil {
		return nil, core.NewEngineError(filename, "column stats", err)
	}
	defer func() { _ = db.Close() }()

	ident := quoteIdent(column)
	query := fmt.Sprintf(
		"SELECT COUNT(*) - COUNT(%s), COUNT(DISTINCT %s) FROM '%s'",
		ident, ident, escapePath(s.path(filename)),
	)

	stats := &core.ColumnStats{}
	if err := db.QueryRowContext(ctx, query).Scan(&stats.NullCount, &stats.DistinctCount); err != nil {
		return nil, core.NewEngineError(filename, "column stats", err)
	}
	return stats, nil
}

func hasColumn(schema []core.PhysicalColumn, name string) bool {
	for _, c := range schema {
		if c.Name == name {
			return true
		}
	}
	return false
}
