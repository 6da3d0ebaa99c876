// Package core defines the shared domain types for ParqHub: file and column
// metadata records, the derived physical-file view, the effective display
// schema, and the error taxonomy used at component boundaries.
package core

import "time"

// FileMetadata is the user-curated business metadata for one parquet file.
// One record per filename; existence is independent of the physical file.
type FileMetadata struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Responsible string    `json:"responsible,omitempty"`
	Frequency   string    `json:"frequency,omitempty"`
	Permissions string    `json:"permissions"`
	Tags        []string  `json:"tags"`
	FileSizeMB  *float64  `json:"file_size_mb,omitempty"`
	RowCount    *int64    `json:"row_count,omitempty"`
	ColumnCount *int      `json:"column_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileMetadataCreate holds the fields accepted when creating a metadata record.
type FileMetadataCreate struct {
	Filename    string   `json:"filename"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Responsible string   `json:"responsible"`
	Frequency   string   `json:"frequency"`
	Permissions string   `json:"permissions"`
	Tags        []string `json:"tags"`
}

// FileMetadataPatch is a partial update; nil fields are left untouched.
type FileMetadataPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Responsible *string   `json:"responsible"`
	Frequency   *string   `json:"frequency"`
	Permissions *string   `json:"permissions"`
	Tags        *[]string `json:"tags"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p FileMetadataPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Responsible == nil &&
		p.Frequency == nil && p.Permissions == nil && p.Tags == nil
}

// MetadataHistory is one immutable change-log entry. A row exists only for
// fields whose value actually changed.
type MetadataHistory struct {
	ID           int64     `json:"id"`
	FileID       int64     `json:"file_id"`
	FieldChanged string    `json:"field_changed"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	ChangedBy    string    `json:"changed_by,omitempty"`
	ChangedAt    time.Time `json:"changed_at"`
}

// ColumnMetadata is the per-column display override for one (filename, column)
// pair. Rows may reference columns that no longer exist physically; drift is
// detected by the reconciliation engine, never prevented here.
type ColumnMetadata struct {
	ID                 int64     `json:"id"`
	Filename           string    `json:"filename"`
	OriginalColumnName string    `json:"original_column_name"`
	DisplayName        string    `json:"display_name,omitempty"`
	Description        string    `json:"description,omitempty"`
	DataType           string    `json:"data_type,omitempty"`
	IsVisible          bool      `json:"is_visible"`
	SortOrder          int       `json:"sort_order"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ColumnMetadataPatch is a partial update for a column metadata row.
type ColumnMetadataPatch struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	DataType    *string `json:"data_type"`
	IsVisible   *bool   `json:"is_visible"`
	SortOrder   *int    `json:"sort_order"`
}

// PhysicalColumn is one (name, type) pair from live file inspection.
type PhysicalColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PhysicalFileInfo is the derived technical view of a parquet file. It is
// recomputed from the file on every read and never cached.
type PhysicalFileInfo struct {
	Name        string           `json:"name"`
	SizeBytes   int64            `json:"size_bytes"`
	SizeMB      float64          `json:"size_mb"`
	Modified    time.Time        `json:"modified"`
	RowCount    int64            `json:"row_count"`
	ColumnCount int              `json:"column_count"`
	Columns     []PhysicalColumn `json:"columns"`
}

// CombinedFileInfo merges the technical view with business metadata. Either
// half may be absent: Physical is zero-valued for files deleted from disk, and
// Metadata is nil for files nobody has curated yet.
type CombinedFileInfo struct {
	Name        string           `json:"name"`
	SizeBytes   int64            `json:"size_bytes"`
	SizeMB      float64          `json:"size_mb"`
	Modified    *time.Time       `json:"modified"`
	RowCount    *int64           `json:"row_count"`
	ColumnCount *int             `json:"column_count"`
	Columns     []PhysicalColumn `json:"columns"`

	ID          *int64     `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Responsible *string    `json:"responsible"`
	Frequency   *string    `json:"frequency"`
	Permissions string     `json:"permissions"`
	Tags        []string   `json:"tags"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// EffectiveColumn is one entry of the resolved display schema.
type EffectiveColumn struct {
	OriginalName string `json:"original_name"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description,omitempty"`
	DataType     string `json:"data_type,omitempty"`
}

// EffectiveSchema is the resolved, possibly renamed and filtered column list
// for a file. HasCustomNames is true when stored column metadata existed; in
// that case visibility is opt-in and physical columns without a row are
// excluded.
type EffectiveSchema struct {
	Filename       string            `json:"filename"`
	Columns        []EffectiveColumn `json:"columns"`
	HasCustomNames bool              `json:"has_custom_names"`
}

// EffectiveDisplayName returns the name readers see for this column: the
// display override when present, otherwise the original name.
func (c ColumnMetadata) EffectiveDisplayName() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.OriginalColumnName
}

// ColumnSyncResult reports one drift synchronization pass.
type ColumnSyncResult struct {
	Filename      string `json:"filename"`
	Created       int    `json:"created"`
	Hidden        int    `json:"hidden"`
	TotalPhysical int    `json:"total_physical"`
}

// ColumnStats holds per-column statistics from the physical engine.
type ColumnStats struct {
	NullCount     int64 `json:"null_count"`
	DistinctCount int64 `json:"distinct_count"`
}

// MetadataQuery is the filter set for metadata-store searches. Zero values
// mean "no filter". Term matches title/description/filename (and responsible
// in admin summaries) case-insensitively; Tags matches on set overlap.
type MetadataQuery struct {
	Term        string
	Responsible string
	Permissions string
	Tags        []string
}

// Relationship links a column of one cataloged file to a column of another,
// for downstream schema export.
type Relationship struct {
	ID                   int64     `json:"id"`
	ProjectName          string    `json:"project_name,omitempty"`
	FromFilename         string    `json:"from_filename"`
	ToFilename           string    `json:"to_filename"`
	FromColumn           string    `json:"from_column"`
	ToColumn             string    `json:"to_column"`
	Cardinality          string    `json:"cardinality"`
	CrossFilterDirection string    `json:"cross_filter_direction"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// Cardinalities accepted for relationships.
var ValidCardinalities = []string{"1:1", "1:N", "N:1", "N:N"}

// DefaultPermissions is applied when a file has no metadata record.
const DefaultPermissions = "public"
