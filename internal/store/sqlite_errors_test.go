package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/parqhub/parqhub/pkg/core"
)

func setupMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := NewSQLiteStore(nil)
	s.db = db
	return s, mock
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{"nil passes through", nil, false},
		{"unique violation becomes conflict", errors.New("constraint failed: UNIQUE constraint failed: file_metadata.filename"), true},
		{"other errors are wrapped", errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("create", tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			var ce *core.ConflictError
			if errors.As(got, &ce) != tt.wantConflict {
				t.Errorf("conflict=%v, want %v (err: %v)", !tt.wantConflict, tt.wantConflict, got)
			}
		})
	}
}

func TestSQLiteStore_CreateFileMetadata_DriverErrorWrapped(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectExec("INSERT INTO file_metadata").
		WillReturnError(errors.New("database is locked"))

	_, err := s.CreateFileMetadata(context.Background(), core.FileMetadataCreate{
		Filename: "f.parquet",
		Title:    "F",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if core.IsValidation(err) {
		t.Errorf("locked database must not surface as validation: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_DeleteFileMetadata_DriverErrorWrapped(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectExec("DELETE FROM file_metadata").
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.DeleteFileMetadata(context.Background(), "f.parquet")
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
