package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/whizardlm/whizard-api/internal/models"
)

// SourceRepository handles source database operations
type SourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create records one ingested upload. Upsert keyed by id so re-running an
// ingestion step is safe.
func (r *SourceRepository) Create(ctx context.Context, scope models.TenantScope, source *models.Source) error {
	query := `
		INSERT INTO sources (id, user_id, project_id, name, type, content, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			content = EXCLUDED.content,
			url = EXCLUDED.url
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		source.ID,
		scope.UserID,
		source.ProjectID,
		source.Name,
		source.Type,
		source.Content,
		source.URL,
		time.Now(),
	).Scan(&source.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	source.UserID = scope.UserID
	return nil
}

// GetByID retrieves a source, filtered to the scope's user
func (r *SourceRepository) GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Source, error) {
	source := &models.Source{}

	query := `
		SELECT id, user_id, project_id, name, type, content, url, created_at
		FROM sources
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, id, scope.UserID).Scan(
		&source.ID,
		&source.UserID,
		&source.ProjectID,
		&source.Name,
		&source.Type,
		&source.Content,
		&source.URL,
		&source.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

// ListByProject retrieves a project's sources for the scope's user,
// newest first
func (r *SourceRepository) ListByProject(ctx context.Context, scope models.TenantScope, projectID uuid.UUID) ([]*models.Source, error) {
	query := `
		SELECT id, user_id, project_id, name, type, content, url, created_at
		FROM sources
		WHERE project_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		source := &models.Source{}
		if err := rows.Scan(
			&source.ID,
			&source.UserID,
			&source.ProjectID,
			&source.Name,
			&source.Type,
			&source.Content,
			&source.URL,
			&source.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return sources, nil
}
