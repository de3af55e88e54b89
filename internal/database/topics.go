package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/whizardlm/whizard-api/internal/models"
)

// TopicRepository handles the per-project topic set
type TopicRepository struct {
	db *DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Write replaces the project's topic set. Upsert keyed by project_id, so a
// project has exactly one row and a merge is last-writer-wins.
func (r *TopicRepository) Write(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) error {
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	query := `
		INSERT INTO topics (project_id, user_id, topics_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO UPDATE SET
			topics_json = EXCLUDED.topics_json,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, projectID, scope.UserID, topicsJSON, time.Now()); err != nil {
		return fmt.Errorf("failed to write topics: %w", err)
	}

	return nil
}

// Read retrieves the project's topic set filtered to the scope's user.
// A topic set owned by another user yields ErrNotFound, not the row.
func (r *TopicRepository) Read(ctx context.Context, scope models.TenantScope, projectID uuid.UUID) (*models.TopicSet, error) {
	set := &models.TopicSet{}
	var topicsJSON []byte

	query := `
		SELECT project_id, user_id, topics_json, updated_at
		FROM topics
		WHERE project_id = $1 AND user_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, projectID, scope.UserID).Scan(
		&set.ProjectID,
		&set.UserID,
		&topicsJSON,
		&set.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topics for project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}

	if err := json.Unmarshal(topicsJSON, &set.Topics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
	}

	return set, nil
}
