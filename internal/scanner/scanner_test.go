package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/parqhub/parqhub/pkg/core"
)

// writeTestParquet creates a small parquet file with known contents and
// returns the directory holding it.
func writeTestParquet(t *testing.T, filename string) string {
	t.Helper()
	dir := t.TempDir()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	defer db.Close()

	path := filepath.Join(dir, filename)
	query := fmt.Sprintf(`COPY (
		SELECT * FROM (VALUES
			(1, 'alpha', 10.5),
			(2, 'beta', 20.0),
			(3, 'gamma', NULL),
			(4, 'alphabet', 40.25)
		) AS t(id, name, amount)
	) TO '%s' (FORMAT PARQUET)`, escapePath(path))

	if _, err := db.Exec(query); err != nil {
		t.Fatalf("failed to write test parquet: %v", err)
	}
	return dir
}

func TestScanner_ListFiles(t *testing.T) {
	dir := writeTestParquet(t, "b.parquet")
	s := New(dir, nil)

	files, err := s.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(files) != 1 || files[0] != "b.parquet" {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestScanner_ListFiles_MissingDir(t *testing.T) {
	s := New("/nonexistent/path", nil)

	files, err := s.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}

func TestScanner_Schema(t *testing.T) {
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	schema, err := s.Schema(context.Background(), "f.parquet")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if len(schema) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(schema))
	}
	if schema[0].Name != "id" || schema[1].Name != "name" || schema[2].Name != "amount" {
		t.Errorf("unexpected column names: %+v", schema)
	}
}

func TestScanner_Schema_MissingFile(t *testing.T) {
	s := New(t.TempDir(), nil)

	_, err := s.Schema(context.Background(), "missing.parquet")
	if !core.IsEngineError(err) {
		t.Errorf("expected engine error for missing file, got %v", err)
	}
}

func TestScanner_RowCount(t *testing.T) {
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	n, err := s.RowCount(context.Background(), "f.parquet")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows, got %d", n)
	}
}

func TestScanner_FileInfo(t *testing.T) {
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	info, err := s.FileInfo(context.Background(), "f.parquet")
	if err != nil {
		t.Fatalf("failed to get file info: %v", err)
	}
	if info.Name != "f.parquet" {
		t.Errorf("unexpected name: %q", info.Name)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("expected positive size, got %d", info.SizeBytes)
	}
	if info.RowCount != 4 || info.ColumnCount != 3 {
		t.Errorf("unexpected counts: rows=%d cols=%d", info.RowCount, info.ColumnCount)
	}
	if info.Modified.IsZero() {
		t.Error("modified time should be set")
	}
}

func TestScanner_FileInfo_NotFound(t *testing.T) {
	s := New(t.TempDir(), nil)

	_, err := s.FileInfo(context.Background(), "missing.parquet")
	if !core.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestScanner_ColumnStats(t *testing.T) {
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	stats, err := s.ColumnStats(context.Background(), "f.parquet", "amount")
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.NullCount != 1 {
		t.Errorf("expected 1 null, got %d", stats.NullCount)
	}
	if stats.DistinctCount != 3 {
		t.Errorf("expected 3 distinct values, got %d", stats.DistinctCount)
	}
}

func TestScanner_ColumnStats_UnknownColumn(t *testing.T) {
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	_, err := s.ColumnStats(context.Background(), "f.parquet", "nope")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestScanner_Scan(t *testing.T) {
	ctx := context.Background()
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	schema, err := s.Schema(ctx, "f.parquet")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}

	t.Run("full scan", func(t *testing.T) {
		rows, err := s.Scan(ctx, "f.parquet", schema, ScanRequest{})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("expected 4 rows, got %d", len(rows))
		}
		if rows[0]["name"] != "alpha" {
			t.Errorf("unexpected first row: %v", rows[0])
		}
		if rows[2]["amount"] != nil {
			t.Errorf("expected nil for NULL amount, got %v", rows[2]["amount"])
		}
	})

	t.Run("projection", func(t *testing.T) {
		rows, err := s.Scan(ctx, "f.parquet", schema, ScanRequest{Columns: []string{"name"}})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(rows[0]) != 1 {
			t.Errorf("expected single-column rows, got %v", rows[0])
		}
	})

	t.Run("search filters rows", func(t *testing.T) {
		rows, err := s.Scan(ctx, "f.parquet", schema, ScanRequest{
			Search:        "ALPHA",
			SearchColumns: schema,
		})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("expected 2 matches for case-insensitive 'ALPHA', got %d", len(rows))
		}
	})

	t.Run("search matches non-text columns", func(t *testing.T) {
		rows, err := s.Scan(ctx, "f.parquet", schema, ScanRequest{
			Search:        "20.0",
			SearchColumns: schema,
		})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("expected 1 match on numeric column, got %d", len(rows))
		}
	})

	t.Run("sort and pagination", func(t *testing.T) {
		rows, err := s.Scan(ctx, "f.parquet", schema, ScanRequest{
			Sort:   &SortSpec{Column: "id", Descending: true},
			Limit:  2,
			Offset: 1,
		})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0]["id"] != int64(3) || rows[1]["id"] != int64(2) {
			t.Errorf("unexpected page: %v", rows)
		}
	})
}

func TestScanner_Count(t *testing.T) {
	ctx := context.Background()
	dir := writeTestParquet(t, "f.parquet")
	s := New(dir, nil)

	schema, err := s.Schema(ctx, "f.parquet")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}

	n, err := s.Count(ctx, "f.parquet", schema, ScanRequest{
		Search:        "alpha",
		SearchColumns: schema,
		Limit:         1,
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("count must ignore pagination, expected 2, got %d", n)
	}
}
