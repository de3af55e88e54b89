package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/vector"
)

// Searcher is the read surface of the vector index
type Searcher interface {
	Query(ctx context.Context, scope models.TenantScope, text string, filter vector.Filter, limit int) ([]string, error)
	Scan(ctx context.Context, scope models.TenantScope, filter vector.Filter) ([]vector.Entry, error)
}

// Coordinator routes retrieval requests to the right index access
// pattern: similarity search when there is a query text, a filtered scan
// when the caller already knows which topics it wants. An empty result is
// a valid answer, never an error.
type Coordinator struct {
	index  Searcher
	logger *zap.Logger
}

// NewCoordinator creates a retrieval coordinator
func NewCoordinator(index Searcher, logger *zap.Logger) *Coordinator {
	return &Coordinator{index: index, logger: logger}
}

// ByConversation runs a similarity search over the chunks of one
// conversation. Used by chat to ground replies in the uploaded material.
func (c *Coordinator) ByConversation(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, queryText string, limit int) ([]string, error) {
	filter := vector.Filter{ConversationID: &conversationID}

	docs, err := c.index.Query(ctx, scope, queryText, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve by conversation: %w", err)
	}

	c.logger.Debug("retrieved_by_conversation",
		zap.String("conversation_id", conversationID.String()),
		zap.Int("results", len(docs)),
	)

	return docs, nil
}

// ByProjectTopics collects every chunk of a project labeled with one of
// the given topics. With no topics given, all of the project's chunks
// qualify. Topic matching is exact, not semantic.
func (c *Coordinator) ByProjectTopics(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) ([]string, error) {
	filter := vector.Filter{ProjectID: &projectID}

	entries, err := c.index.Scan(ctx, scope, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve by project topics: %w", err)
	}

	wanted := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		wanted[topic] = struct{}{}
	}

	var docs []string
	for _, entry := range entries {
		if len(wanted) > 0 {
			if _, ok := wanted[entry.Metadata.Topic]; !ok {
				continue
			}
		}
		docs = append(docs, entry.Document)
	}

	c.logger.Debug("retrieved_by_project_topics",
		zap.String("project_id", projectID.String()),
		zap.Int("topics", len(topics)),
		zap.Int("results", len(docs)),
	)

	return docs, nil
}
