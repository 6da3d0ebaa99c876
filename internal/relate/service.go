// Package relate manages table relationships and assembles the export
// summary downstream modeling tools consume: every curated table with its
// effective schema plus the relationships between them.
package relate

import (
	"context"
	"log/slog"
	"time"

	"github.com/parqhub/parqhub/internal/reconcile"
	"github.com/parqhub/parqhub/internal/scanner"
	"github.com/parqhub/parqhub/pkg/core"
)

// Service manages relationships between cataloged files.
type Service struct {
	store     core.Store
	reconcile *reconcile.Service
	scanner   *scanner.Scanner
	logger    *slog.Logger
}

// NewService creates a relationship service. A nil logger discards output.
func NewService(store core.Store, rec *reconcile.Service, sc *scanner.Scanner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, reconcile: rec, scanner: sc, logger: logger}
}

// Create validates and persists a relationship. Both endpoint columns must be
// known, either as stored column metadata or as a physical column of a file
// on disk.
func (s *Service) Create(ctx context.Context, rel core.Relationship) (*core.Relationship, error) {
	if err := scanner.ValidateFilename(rel.FromFilename); err != nil {
		return nil, err
	}
	if err := scanner.ValidateFilename(rel.ToFilename); err != nil {
		return nil, err
	}
	for _, ep := range []struct{ filename, column string }{
		{rel.FromFilename, rel.FromColumn},
		{rel.ToFilename, rel.ToColumn},
	} {
		known, err := s.endpointKnown(ctx, ep.filename, ep.column)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, core.NewValidation("unknown relationship endpoint %s.%s", ep.filename, ep.column)
		}
	}
	created, err := s.store.CreateRelationship(ctx, rel)
	if err != nil {
		return nil, err
	}
	s.logger.Info("relationship created",
		"id", created.ID,
		"from", created.FromFilename+"."+created.FromColumn,
		"to", created.ToFilename+"."+created.ToColumn)
	return created, nil
}

// endpointKnown reports whether a column is curated or physically present.
func (s *Service) endpointKnown(ctx context.Context, filename, column string) (bool, error) {
	cm, err := s.store.GetColumnMetadata(ctx, filename, column)
	if err != nil {
		return false, err
	}
	if cm != nil {
		return true, nil
	}
	if !s.scanner.Exists(filename) {
		return false, nil
	}
	physical, err := s.scanner.Schema(ctx, filename)
	if err != nil {
		return false, err
	}
	for _, pc := range physical {
		if pc.Name == column {
			return true, nil
		}
	}
	return false, nil
}

// List returns active relationships, optionally scoped to a project.
func (s *Service) List(ctx context.Context, projectName string) ([]*core.Relationship, error) {
	return s.store.ListRelationships(ctx, projectName)
}

// Delete removes a relationship; an unknown id is NotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteRelationship(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return core.NewNotFound("relationship", "id")
	}
	return nil
}

// TableSummary is one curated table in an export summary.
type TableSummary struct {
	Filename       string                 `json:"filename"`
	Title          string                 `json:"title"`
	Columns        []core.EffectiveColumn `json:"columns"`
	HasCustomNames bool                   `json:"has_custom_names"`
	RowCount       *int64                 `json:"row_count,omitempty"`
}

// ExportSummary is the model handed to downstream export tooling: curated
// tables with their effective schemas and the relationships joining them.
type ExportSummary struct {
	ProjectName   string               `json:"project_name,omitempty"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Tables        []TableSummary       `json:"tables"`
	Relationships []*core.Relationship `json:"relationships"`
	Skipped       []string             `json:"skipped,omitempty"`
}

// ExportPrepare assembles the export summary. Only curated files present on
// disk become tables; curated records whose file is gone are listed as
// skipped. Relationships touching a skipped or unknown table are dropped from
// the summary.
func (s *Service) ExportPrepare(ctx context.Context, projectName string) (*ExportSummary, error) {
	records, err := s.store.ListFileMetadata(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ExportSummary{
		ProjectName:   projectName,
		GeneratedAt:   time.Now().UTC(),
		Tables:        []TableSummary{},
		Relationships: []*core.Relationship{},
	}

	included := make(map[string]bool, len(records))
	for _, r := range records {
		if !s.scanner.Exists(r.Filename) {
			summary.Skipped = append(summary.Skipped, r.Filename)
			continue
		}
		schema, err := s.reconcile.EffectiveSchema(ctx, r.Filename)
		if err != nil {
			s.logger.Warn("skipping table in export", "filename", r.Filename, "error", err)
			summary.Skipped = append(summary.Skipped, r.Filename)
			continue
		}
		summary.Tables = append(summary.Tables, TableSummary{
			Filename:       r.Filename,
			Title:          r.Title,
			Columns:        schema.Columns,
			HasCustomNames: schema.HasCustomNames,
			RowCount:       r.RowCount,
		})
		included[r.Filename] = true
	}

	relationships, err := s.store.ListRelationships(ctx, projectName)
	if err != nil {
		return nil, err
	}
	for _, rel := range relationships {
		if included[rel.FromFilename] && included[rel.ToFilename] {
			summary.Relationships = append(summary.Relationships, rel)
		}
	}

	return summary, nil
}
