package core

import (
	"context"
	"time"
)

// Store is the metadata store adapter contract: point lookups by filename,
// upserts, ordered scans, and deletes over the three persisted record kinds
// plus relationships. Implementations translate storage errors into the
// taxonomy in errors.go; a raw driver error never crosses this boundary.
//
// Absent records are returned as (nil, nil), not as errors; NotFound is the
// caller's decision when absence is unacceptable.
type Store interface {
	// File-level business metadata.
	CreateFileMetadata(ctx context.Context, in FileMetadataCreate) (*FileMetadata, error)
	GetFileMetadata(ctx context.Context, filename string) (*FileMetadata, error)
	ListFileMetadata(ctx context.Context) ([]*FileMetadata, error)
	SearchFileMetadata(ctx context.Context, q MetadataQuery) ([]*FileMetadata, error)
	UpdateFileMetadata(ctx context.Context, filename string, patch FileMetadataPatch, changedBy string) (*FileMetadata, error)
	UpdateFileStats(ctx context.Context, filename string, sizeMB float64, rowCount int64, columnCount int) (*FileMetadata, error)
	DeleteFileMetadata(ctx context.Context, filename string) (bool, error)
	CountFileMetadata(ctx context.Context) (int64, error)
	LastUpdatedAt(ctx context.Context) (*time.Time, error)
	UniqueResponsibles(ctx context.Context) ([]string, error)
	UniquePermissions(ctx context.Context) ([]string, error)
	UniqueTags(ctx context.Context) ([]string, error)

	// Change history (append-only; written by UpdateFileMetadata only when a
	// field value actually changed).
	GetHistory(ctx context.Context, filename string) ([]*MetadataHistory, error)
	RecentHistory(ctx context.Context, since time.Time, limit int) ([]*MetadataHistory, error)

	// Column-level display metadata.
	ListColumnMetadata(ctx context.Context, filename string, visibleOnly bool) ([]*ColumnMetadata, error)
	GetColumnMetadata(ctx context.Context, filename, column string) (*ColumnMetadata, error)
	UpsertColumnMetadata(ctx context.Context, filename, column string, patch ColumnMetadataPatch) (*ColumnMetadata, bool, error)
	ResetColumnMetadata(ctx context.Context, filename string) (int64, error)

	// Relationships for downstream export.
	CreateRelationship(ctx context.Context, rel Relationship) (*Relationship, error)
	ListRelationships(ctx context.Context, projectName string) ([]*Relationship, error)
	DeleteRelationship(ctx context.Context, id int64) (bool, error)

	Close() error
}
