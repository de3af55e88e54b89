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

// ConversationRepository handles conversations and their messages
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a conversation. Upsert keyed by conversation_id so the
// lazy create on first message cannot race itself into a duplicate.
func (r *ConversationRepository) Create(ctx context.Context, scope models.TenantScope, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (conversation_id, title, user_id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (conversation_id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		conv.ID,
		conv.Title,
		scope.UserID,
		conv.ProjectID,
		time.Now(),
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	conv.UserID = scope.UserID
	return nil
}

// GetByID retrieves a conversation filtered to the scope's user
func (r *ConversationRepository) GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}

	query := `
		SELECT conversation_id, title, user_id, project_id, created_at, updated_at
		FROM conversations
		WHERE conversation_id = $1 AND user_id = $2
	`

	err := r.db.QueryRowContext(ctx, query, id, scope.UserID).Scan(
		&conv.ID,
		&conv.Title,
		&conv.UserID,
		&conv.ProjectID,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ListByUser retrieves the scope's conversations, most recently updated
// first
func (r *ConversationRepository) ListByUser(ctx context.Context, scope models.TenantScope) ([]*models.Conversation, error) {
	query := `
		SELECT conversation_id, title, user_id, project_id, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(
			&conv.ID,
			&conv.Title,
			&conv.UserID,
			&conv.ProjectID,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return convs, nil
}

// AppendMessage appends a chat message and bumps the conversation's
// updated_at in one transaction, so the timestamp never drifts from the
// message log.
func (r *ConversationRepository) AppendMessage(ctx context.Context, scope models.TenantScope, msg *models.ChatMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	insertMsg := `
		INSERT INTO chat_messages (id, conversation_id, message_type, content, user_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING timestamp
	`
	err = tx.QueryRowContext(ctx, insertMsg,
		msg.ID,
		msg.ConversationID,
		msg.MessageType,
		msg.Content,
		scope.UserID,
		now,
	).Scan(&msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	touchConv := `
		UPDATE conversations
		SET updated_at = $3
		WHERE conversation_id = $1 AND user_id = $2
	`
	result, err := tx.ExecContext(ctx, touchConv, msg.ConversationID, scope.UserID, now)
	if err != nil {
		return fmt.Errorf("failed to update conversation timestamp: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	msg.UserID = scope.UserID
	return nil
}

// ListMessages retrieves a conversation's messages for the scope's user,
// ordered by timestamp ascending
func (r *ConversationRepository) ListMessages(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, message_type, content, user_id, timestamp
		FROM chat_messages
		WHERE conversation_id = $1 AND user_id = $2
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.MessageType,
			&msg.Content,
			&msg.UserID,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}
