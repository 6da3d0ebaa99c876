package query

import (
	"context"
	"testing"

	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/internal/store"
	"github.com/parqhub/parqhub/internal/testutil"
	"github.com/parqhub/parqhub/pkg/core"
)

func setupService(t *testing.T) (*Service, *store.SQLiteStore, string) {
	t.Helper()
	st := store.NewSQLiteStore(nil)
	if err := st.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	sc := scanner.New(dir, nil)
	rec := reconcile.NewService(st, sc, nil)
	svc := NewService(rec, sc, 50, 200, testutil.NewTestLogger(t))
	return svc, st, dir
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestQuery_Passthrough(t *testing.T) {
	svc, _, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")

	result, err := svc.Query(context.Background(), "sales.parquet", PageRequest{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.TotalRows != 4 || result.TotalPages != 1 {
		t.Errorf("unexpected totals: rows=%d pages=%d", result.TotalRows, result.TotalPages)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	if result.HasCustomNames {
		t.Error("passthrough should not report custom names")
	}
	if _, ok := result.Rows[0]["name"]; !ok {
		t.Errorf("expected physical key 'name', got %v", result.Rows[0])
	}
}

func TestQuery_DisplayProjection(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	upsert := func(column string, patch core.ColumnMetadataPatch) {
		t.Helper()
		if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", column, patch); err != nil {
			t.Fatalf("failed to upsert %s: %v", column, err)
		}
	}
	upsert("name", core.ColumnMetadataPatch{DisplayName: strptr("Product Name")})
	upsert("amount", core.ColumnMetadataPatch{IsVisible: boolptr(false)})

	result, err := svc.Query(ctx, "sales.parquet", PageRequest{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !result.HasCustomNames {
		t.Error("expected has_custom_names")
	}
	// Only the curated, visible column appears; "id" and "amount" are out.
	if len(result.Columns) != 1 || result.Columns[0].DisplayName != "Product Name" {
		t.Fatalf("unexpected columns: %+v", result.Columns)
	}
	row := result.Rows[0]
	if _, ok := row["Product Name"]; !ok {
		t.Errorf("rows must be keyed by display name, got %v", row)
	}
	if _, ok := row["name"]; ok {
		t.Errorf("physical key must not leak: %v", row)
	}
	if _, ok := row["amount"]; ok {
		t.Errorf("hidden column must not appear: %v", row)
	}
}

func TestQuery_SearchSweepsHiddenColumns(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	// Hide "amount" but curate "name" so visibility is opt-in.
	if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", "name", core.ColumnMetadataPatch{}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	// 20.0 lives only in the hidden "amount" column.
	result, err := svc.Query(ctx, "sales.parquet", PageRequest{Search: "20.0"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.TotalRows != 1 {
		t.Errorf("search must cover hidden columns, got %d rows", result.TotalRows)
	}
	if len(result.Rows) != 1 || result.Rows[0]["name"] != "beta" {
		t.Errorf("unexpected rows: %v", result.Rows)
	}
}

func TestQuery_SortByDisplayName(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", "id", core.ColumnMetadataPatch{DisplayName: strptr("Identifier")}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	result, err := svc.Query(ctx, "sales.parquet", PageRequest{SortBy: "Identifier", SortDir: "desc"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.Rows[0]["Identifier"] != int64(4) {
		t.Errorf("expected descending sort, got first row %v", result.Rows[0])
	}

	// Original name works too.
	result, err = svc.Query(ctx, "sales.parquet", PageRequest{SortBy: "id"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.Rows[0]["Identifier"] != int64(1) {
		t.Errorf("expected ascending sort, got first row %v", result.Rows[0])
	}
}

func TestQuery_Validation(t *testing.T) {
	svc, _, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	tests := []struct {
		name string
		req  PageRequest
	}{
		{"negative page", PageRequest{Page: -1}},
		{"oversized page size", PageRequest{PageSize: 500}},
		{"bad sort direction", PageRequest{SortBy: "id", SortDir: "sideways"}},
		{"unknown sort column", PageRequest{SortBy: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Query(ctx, "sales.parquet", tt.req)
			if !core.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestQuery_Pagination(t *testing.T) {
	svc, _, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	result, err := svc.Query(ctx, "sales.parquet", PageRequest{Page: 2, PageSize: 3, SortBy: "id"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.TotalRows != 4 {
		t.Errorf("total must ignore pagination, got %d", result.TotalRows)
	}
	if result.TotalPages != 2 {
		t.Errorf("expected 2 pages of 3, got %d", result.TotalPages)
	}
	if len(result.Rows) != 1 {
		t.Errorf("expected 1 row on the last page, got %d", len(result.Rows))
	}
}

func TestQuery_NoVisibleColumns(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	// Curate one column and hide it: opt-in visibility leaves nothing.
	if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", "id", core.ColumnMetadataPatch{IsVisible: boolptr(false)}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	result, err := svc.Query(ctx, "sales.parquet", PageRequest{})
	if err != nil {
		t.Fatalf("no visible columns must not be an error: %v", err)
	}
	if len(result.Columns) != 0 || len(result.Rows) != 0 {
		t.Errorf("expected empty page, got %+v", result)
	}
	if result.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestRaw_IgnoresDisplaySchema(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", "name", core.ColumnMetadataPatch{DisplayName: strptr("Renamed")}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	result, err := svc.Raw(ctx, "sales.parquet", PageRequest{})
	if err != nil {
		t.Fatalf("raw query failed: %v", err)
	}
	if len(result.Columns) != 3 {
		t.Errorf("raw view must show all physical columns, got %d", len(result.Columns))
	}
	if _, ok := result.Rows[0]["name"]; !ok {
		t.Errorf("raw rows keyed by physical names, got %v", result.Rows[0])
	}
}

func TestQuery_RequestedColumns(t *testing.T) {
	svc, st, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	if _, _, err := st.UpsertColumnMetadata(ctx, "sales.parquet", "name", core.ColumnMetadataPatch{DisplayName: strptr("Product Name")}); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	// A display name resolves to its physical column; rows come back keyed
	// by the same display name the caller asked for.
	result, err := svc.Query(ctx, "sales.parquet", PageRequest{Columns: []string{"Product Name"}, SortBy: "Product Name"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(result.Columns) != 1 || result.Columns[0].OriginalName != "name" {
		t.Fatalf("unexpected projection: %+v", result.Columns)
	}
	row := result.Rows[0]
	if row["Product Name"] != "alpha" {
		t.Errorf("expected rows keyed by requested display name, got %v", row)
	}
	if _, ok := row["name"]; ok {
		t.Errorf("physical key must not leak: %v", row)
	}

	// A name with no stored row passes through as a physical column, so
	// curation of one column does not lock out the others.
	result, err = svc.Query(ctx, "sales.parquet", PageRequest{Columns: []string{"id", "Product Name"}, SortBy: "id"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(result.Columns) != 2 {
		t.Fatalf("unexpected projection: %+v", result.Columns)
	}
	if result.Rows[0]["id"] != int64(1) || result.Rows[0]["Product Name"] != "alpha" {
		t.Errorf("unexpected first row: %v", result.Rows[0])
	}

	// A name matching nothing physical surfaces as a validation error.
	if _, err := svc.Query(ctx, "sales.parquet", PageRequest{Columns: []string{"nope"}}); !core.IsValidation(err) {
		t.Errorf("expected validation error for unknown column, got %v", err)
	}
}

func TestRaw_RequestedColumns(t *testing.T) {
	svc, _, dir := setupService(t)
	testutil.SalesFixture(t, dir, "sales.parquet")
	ctx := context.Background()

	result, err := svc.Raw(ctx, "sales.parquet", PageRequest{Columns: []string{"name", "amount"}, SortBy: "name"})
	if err != nil {
		t.Fatalf("raw query failed: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0].OriginalName != "name" {
		t.Fatalf("unexpected projection: %+v", result.Columns)
	}
	if result.Columns[1].DataType != "DOUBLE" {
		t.Errorf("expected projected column to keep its type, got %+v", result.Columns[1])
	}
	row := result.Rows[0]
	if _, ok := row["id"]; ok {
		t.Errorf("unrequested column must not appear: %v", row)
	}

	if _, err := svc.Raw(ctx, "sales.parquet", PageRequest{Columns: []string{"nope"}}); !core.IsValidation(err) {
		t.Errorf("expected validation error for unknown column, got %v", err)
	}
}

func TestQuery_MissingFile(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Query(ctx, "missing.parquet", PageRequest{}); !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.Raw(ctx, "missing.parquet", PageRequest{}); !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
