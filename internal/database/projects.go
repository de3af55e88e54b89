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

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project owned by the scope's user
func (r *ProjectRepository) Create(ctx context.Context, scope models.TenantScope, project *models.Project) error {
	query := `
		INSERT INTO projects (id, user_id, name, created_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING created_at, last_accessed_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		project.ID,
		scope.UserID,
		project.Name,
		now,
	).Scan(&project.CreatedAt, &project.LastAccessedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	project.UserID = scope.UserID
	return nil
}

// GetByID retrieves a project, filtered to the scope's user. A project
// owned by another user yields ErrNotFound.
func (r *ProjectRepository) GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Project, error) {
	project := &models.Project{}

	query := `
		SELECT id, user_id, name, created_at, last_accessed_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, id, scope.UserID).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.CreatedAt,
		&project.LastAccessedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListByUser retrieves the scope's projects, most recently accessed first
func (r *ProjectRepository) ListByUser(ctx context.Context, scope models.TenantScope) ([]*models.Project, error) {
	query := `
		SELECT id, user_id, name, created_at, last_accessed_at
		FROM projects
		WHERE user_id = $1
		ORDER BY last_accessed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		if err := rows.Scan(
			&project.ID,
			&project.UserID,
			&project.Name,
			&project.CreatedAt,
			&project.LastAccessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// Touch updates last_accessed_at for a project the scope's user owns
func (r *ProjectRepository) Touch(ctx context.Context, scope models.TenantScope, id uuid.UUID) error {
	query := `
		UPDATE projects
		SET last_accessed_at = $3
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, scope.UserID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	return nil
}
