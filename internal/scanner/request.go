package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/parqhub/parqhub/pkg/core"
)

// SortSpec orders a scan by one physical column.
type SortSpec struct {
	Column     string
	Descending bool
}

// ScanRequest describes one data-page read over physical columns. It is a
// small typed request rather than SQL text: columns and the sort column are
// validated against the file's schema before any SQL is built, and the search
// term travels as a bound parameter, so user input never reaches the query
// string.
type ScanRequest struct {
	// Columns to project. Empty means every physical column.
	Columns []string

	// Search filters rows where any column in SearchColumns matches the
	// term case-insensitively. Empty disables filtering.
	Search        string
	SearchColumns []core.PhysicalColumn

	Sort   *SortSpec
	Offset int
	Limit  int
}

// isTextType reports whether a DuckDB type holds text directly; other types
// are cast before matching.
func isTextType(duckType string) bool {
	t := strings.ToUpper(duckType)
	return strings.Contains(t, "VARCHAR") || strings.Contains(t, "CHAR") ||
		strings.Contains(t, "TEXT") || strings.Contains(t, "STRING")
}

// searchPredicate builds the OR-joined match clause and its bound arguments.
func searchPredicate(term string, columns []core.PhysicalColumn) (string, []any) {
	if term == "" || len(columns) == 0 {
		return "", nil
	}
	pattern := "%" + term + "%"
	var clauses []string
	var args []any
	for _, c := range columns {
		ident := quoteIdent(c.Name)
		if isTextType(c.Type) {
			clauses = append(clauses, ident+" ILIKE ?")
		} else {
			clauses = append(clauses, "CAST("+ident+" AS VARCHAR) ILIKE ?")
		}
		args = append(args, pattern)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// compileScan turns a validated request into SQL plus bound arguments.
func compileScan(path string, schema []core.PhysicalColumn, req ScanRequest) (string, []any, error) {
	projection := req.Columns
	if len(projection) == 0 {
		for _, c := range schema {
			projection = append(projection, c.Name)
		}
	}
	if len(projection) == 0 {
		return "", nil, core.NewValidation("file has no columns")
	}

	quoted := make([]string, 0, len(projection))
	for _, name := range projection {
		if !hasColumn(schema, name) {
			return "", nil, core.NewValidation("unknown column %q", name)
		}
		quoted = append(quoted, quoteIdent(name))
	}

	for _, c := range req.SearchColumns {
		if !hasColumn(schema, c.Name) {
			return "", nil, core.NewValidation("unknown search column %q", c.Name)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM '%s'", strings.Join(quoted, ", "), escapePath(path))

	where, args := searchPredicate(req.Search, req.SearchColumns)
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}

	if req.Sort != nil {
		if !hasColumn(schema, req.Sort.Column) {
			return "", nil, core.NewValidation("unknown sort column %q", req.Sort.Column)
		}
		direction := "ASC"
		if req.Sort.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", quoteIdent(req.Sort.Column), direction)
	}

	if req.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", req.Limit)
	}
	if req.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", req.Offset)
	}

	return sb.String(), args, nil
}

// compileCount builds the matching-row count query for a request. Only the
// search filter applies; projection, sort and pagination are irrelevant to the
// total.
func compileCount(path string, schema []core.PhysicalColumn, req ScanRequest) (string, []any, error) {
	for _, c := range req.SearchColumns {
		if !hasColumn(schema, c.Name) {
			return "", nil, core.NewValidation("unknown search column %q", c.Name)
		}
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM '%s'", escapePath(path))
	where, args := searchPredicate(req.Search, req.SearchColumns)
	if where != "" {
		query += " WHERE " + where
	}
	return query, args, nil
}

// Scan executes a data-page read and returns one map per row keyed by
// physical column name, with values normalized for JSON encoding.
func (s *Scanner) Scan(ctx context.Context, filename string, schema []core.PhysicalColumn, req ScanRequest) ([]map[string]any, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	query, args, err := compileScan(s.path(filename), schema, req)
	if err != nil {
		return nil, err
	}

	db, err := openDB()
	if err != nil {
		return nil, core.NewEngineError(filename, "scan", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewEngineError(filename, "scan", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, core.NewEngineError(filename, "scan", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.NewEngineError(filename, "scan", err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewEngineError(filename, "scan", err)
	}
	return out, nil
}

// Count returns the number of rows matching the request's search filter.
func (s *Scanner) Count(ctx context.Context, filename string, schema []core.PhysicalColumn, req ScanRequest) (int64, error) {
	if err := ValidateFilename(filename); err != nil {
		return 0, err
	}

	query, args, err := compileCount(s.path(filename), schema, req)
	if err != nil {
		return 0, err
	}

	db, err := openDB()
	if err != nil {
		return 0, core.NewEngineError(filename, "count", err)
	}
	defer func() { _ = db.Close() }()

	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, core.NewEngineError(filename, "count", err)
	}
	return n, nil
}
