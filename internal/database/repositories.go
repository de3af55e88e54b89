package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/whizardlm/whizard-api/internal/models"
)

// TopicStore is the slice of TopicRepository the ingest pipeline and the
// reconcile worker depend on. The interface keeps both testable with fakes.
type TopicStore interface {
	Write(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) error
	Read(ctx context.Context, scope models.TenantScope, projectID uuid.UUID) (*models.TopicSet, error)
}

// SourceStore is the slice of SourceRepository the ingest pipeline uses
type SourceStore interface {
	Create(ctx context.Context, scope models.TenantScope, source *models.Source) error
}

// SourceCatalog is the read surface of SourceRepository used by handlers
type SourceCatalog interface {
	GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Source, error)
	ListByProject(ctx context.Context, scope models.TenantScope, projectID uuid.UUID) ([]*models.Source, error)
}

// ProjectStore is what the project handlers need from ProjectRepository
type ProjectStore interface {
	Create(ctx context.Context, scope models.TenantScope, project *models.Project) error
	GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Project, error)
	ListByUser(ctx context.Context, scope models.TenantScope) ([]*models.Project, error)
	Touch(ctx context.Context, scope models.TenantScope, id uuid.UUID) error
}

// ConversationStore is what the chat flow needs from ConversationRepository
type ConversationStore interface {
	Create(ctx context.Context, scope models.TenantScope, conv *models.Conversation) error
	GetByID(ctx context.Context, scope models.TenantScope, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, scope models.TenantScope) ([]*models.Conversation, error)
	AppendMessage(ctx context.Context, scope models.TenantScope, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID) ([]*models.ChatMessage, error)
}

// InteractiveStore is what artifact generation needs from InteractiveRepository
type InteractiveStore interface {
	WriteContent(ctx context.Context, scope models.TenantScope, content *models.InteractiveContent) error
	GetContent(ctx context.Context, scope models.TenantScope, interactID uuid.UUID) (*models.InteractiveContent, error)
	History(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, limit int) ([]*models.InteractiveHistory, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TopicStore        = (*TopicRepository)(nil)
	_ SourceStore       = (*SourceRepository)(nil)
	_ SourceCatalog     = (*SourceRepository)(nil)
	_ ProjectStore      = (*ProjectRepository)(nil)
	_ ConversationStore = (*ConversationRepository)(nil)
	_ InteractiveStore  = (*InteractiveRepository)(nil)
)
