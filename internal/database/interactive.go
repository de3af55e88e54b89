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

// InteractiveRepository handles generated artifacts and their audit trail
type InteractiveRepository struct {
	db *DB
}

// NewInteractiveRepository creates a new interactive content repository
func NewInteractiveRepository(db *DB) *InteractiveRepository {
	return &InteractiveRepository{db: db}
}

// WriteContent persists a generated artifact and its history row in one
// transaction. Upsert keyed by interact_id.
func (r *InteractiveRepository) WriteContent(ctx context.Context, scope models.TenantScope, content *models.InteractiveContent) error {
	topicsJSON, err := json.Marshal(content.TopicsUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal topics_used: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	insertContent := `
		INSERT INTO interactive_content (interact_id, project_id, content_type, content_json, topics_used, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (interact_id) DO UPDATE SET
			content_json = EXCLUDED.content_json,
			topics_used = EXCLUDED.topics_used
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, insertContent,
		content.InteractID,
		content.ProjectID,
		content.ContentType,
		[]byte(content.ContentJSON),
		topicsJSON,
		scope.UserID,
		now,
	).Scan(&content.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write interactive content: %w", err)
	}

	insertHistory := `
		INSERT INTO interactive_history (id, user_id, project_id, content_type, topics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, insertHistory,
		uuid.New(),
		scope.UserID,
		content.ProjectID,
		content.ContentType,
		topicsJSON,
		now,
	); err != nil {
		return fmt.Errorf("failed to write interactive history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interactive content: %w", err)
	}

	content.UserID = scope.UserID
	return nil
}

// GetContent retrieves one artifact by interact_id. The user filter is
// authorization only; interact_id alone is the identity.
func (r *InteractiveRepository) GetContent(ctx context.Context, scope models.TenantScope, interactID uuid.UUID) (*models.InteractiveContent, error) {
	content := &models.InteractiveContent{}
	var contentJSON, topicsJSON []byte

	query := `
		SELECT interact_id, project_id, content_type, content_json, topics_used, user_id, created_at
		FROM interactive_content
		WHERE interact_id = $1 AND user_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, interactID, scope.UserID).Scan(
		&content.InteractID,
		&content.ProjectID,
		&content.ContentType,
		&contentJSON,
		&topicsJSON,
		&content.UserID,
		&content.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interactive content %s: %w", interactID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interactive content: %w", err)
	}

	content.ContentJSON = json.RawMessage(contentJSON)
	if err := json.Unmarshal(topicsJSON, &content.TopicsUsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topics_used: %w", err)
	}

	return content, nil
}

// History retrieves the scope's artifact history for a project, most
// recent first, capped at limit
func (r *InteractiveRepository) History(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, limit int) ([]*models.InteractiveHistory, error) {
	query := `
		SELECT id, user_id, project_id, content_type, topics, created_at
		FROM interactive_history
		WHERE user_id = $1 AND project_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, scope.UserID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactive history: %w", err)
	}
	defer rows.Close()

	var entries []*models.InteractiveHistory
	for rows.Next() {
		entry := &models.InteractiveHistory{}
		var topicsJSON []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ProjectID,
			&entry.ContentType,
			&topicsJSON,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal(topicsJSON, &entry.Topics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history topics: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}
