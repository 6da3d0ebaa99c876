package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// WriteParquet materializes the given SELECT body as a parquet file in dir.
// The body is everything after "COPY (", e.g. a VALUES list with aliases.
func WriteParquet(t testing.TB, dir, filename, selectBody string) string {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	defer db.Close()

	path := filepath.Join(dir, filename)
	escaped := strings.ReplaceAll(path, "'", "''")
	query := fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", selectBody, escaped)
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("failed to write parquet fixture %s: %v", filename, err)
	}
	return path
}

// SalesFixture writes the standard four-row sales fixture used across tests:
// columns id (BIGINT), name (VARCHAR), amount (DOUBLE, one NULL).
func SalesFixture(t testing.TB, dir, filename string) string {
	t.Helper()
	return WriteParquet(t, dir, filename, `
		SELECT * FROM (VALUES
			(1, 'alpha', 10.5),
			(2, 'beta', 20.0),
			(3, 'gamma', NULL),
			(4, 'alphabet', 40.25)
		) AS t(id, name, amount)`)
}
