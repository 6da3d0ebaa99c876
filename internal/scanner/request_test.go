package scanner

import (
	"strings"
	"testing"

	"github.com/parqhub/parqhub/pkg/core"
)

var testSchema = []core.PhysicalColumn{
	{Name: "id", Type: "BIGINT"},
	{Name: "name", Type: "VARCHAR"},
	{Name: "amount", Type: "DOUBLE"},
	{Name: "weird \"col\"", Type: "VARCHAR"},
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "sales.parquet", false},
		{"valid with underscore", "sales_2024.parquet", false},
		{"empty", "", true},
		{"missing extension", "sales", true},
		{"wrong extension", "sales.csv", true},
		{"forward slash", "dir/sales.parquet", true},
		{"backslash", `dir\sales.parquet`, true},
		{"parent traversal", "../sales.parquet", true},
		{"dotdot inside name", "sa..les.parquet", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Errorf("expected validation error for %q, got %v", tt.input, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.input, err)
			}
		})
	}
}

func TestCompileScan(t *testing.T) {
	tests := []struct {
		name     string
		req      ScanRequest
		wantSQL  []string // substrings that must appear, in order
		wantArgs int
		wantErr  bool
	}{
		{
			name:    "all columns by default",
			req:     ScanRequest{},
			wantSQL: []string{`SELECT "id", "name", "amount", "weird ""col"""`, `FROM '/data/f.parquet'`},
		},
		{
			name:    "explicit projection",
			req:     ScanRequest{Columns: []string{"name", "amount"}},
			wantSQL: []string{`SELECT "name", "amount" FROM`},
		},
		{
			name:    "unknown projected column",
			req:     ScanRequest{Columns: []string{"nope"}},
			wantErr: true,
		},
		{
			name: "search binds one parameter per column",
			req: ScanRequest{
				Search:        "acme",
				SearchColumns: testSchema[:3],
			},
			wantSQL:  []string{`WHERE`, `"name" ILIKE ?`, `CAST("id" AS VARCHAR) ILIKE ?`},
			wantArgs: 3,
		},
		{
			name:    "sort ascending",
			req:     ScanRequest{Sort: &SortSpec{Column: "amount"}},
			wantSQL: []string{`ORDER BY "amount" ASC`},
		},
		{
			name:    "sort descending",
			req:     ScanRequest{Sort: &SortSpec{Column: "amount", Descending: true}},
			wantSQL: []string{`ORDER BY "amount" DESC`},
		},
		{
			name:    "unknown sort column",
			req:     ScanRequest{Sort: &SortSpec{Column: "nope"}},
			wantErr: true,
		},
		{
			name:    "pagination",
			req:     ScanRequest{Limit: 50, Offset: 100},
			wantSQL: []string{`LIMIT 50 OFFSET 100`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := compileScan("/data/f.parquet", testSchema, tt.req)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			rest := sql
			for _, want := range tt.wantSQL {
				idx := strings.Index(rest, want)
				if idx < 0 {
					t.Fatalf("expected %q in %q", want, sql)
				}
				rest = rest[idx+len(want):]
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

func TestCompileScan_SearchTermNeverInSQL(t *testing.T) {
	req := ScanRequest{
		Search:        "'; DROP TABLE students; --",
		SearchColumns: testSchema[:2],
	}
	sql, args, err := compileScan("/data/f.parquet", testSchema, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "DROP TABLE") {
		t.Errorf("search term leaked into SQL: %q", sql)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 bound args, got %d", len(args))
	}
	if args[0] != "%'; DROP TABLE students; --%" {
		t.Errorf("unexpected bound pattern: %v", args[0])
	}
}

func TestCompileScan_PathQuoteEscaped(t *testing.T) {
	sql, _, err := compileScan("/data/o'brien.parquet", testSchema, ScanRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "'/data/o''brien.parquet'") {
		t.Errorf("path quote not escaped: %q", sql)
	}
}

func TestCompileCount(t *testing.T) {
	sql, args, err := compileCount("/data/f.parquet", testSchema, ScanRequest{
		Search:        "x",
		SearchColumns: testSchema[1:2],
		Sort:          &SortSpec{Column: "amount"},
		Limit:         10,
		Offset:        20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(sql, "SELECT COUNT(*)") {
		t.Errorf("expected count query, got %q", sql)
	}
	for _, forbidden := range []string{"ORDER BY", "LIMIT", "OFFSET"} {
		if strings.Contains(sql, forbidden) {
			t.Errorf("count query must not contain %s: %q", forbidden, sql)
		}
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}

func TestIsTextType(t *testing.T) {
	tests := []struct {
		duckType string
		want     bool
	}{
		{"VARCHAR", true},
		{"varchar", true},
		{"CHAR(10)", true},
		{"BIGINT", false},
		{"DOUBLE", false},
		{"TIMESTAMP", false},
	}
	for _, tt := range tests {
		if got := isTextType(tt.duckType); got != tt.want {
			t.Errorf("isTextType(%q) = %v, want %v", tt.duckType, got, tt.want)
		}
	}
}
