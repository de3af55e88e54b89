package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/models"
)

// ErrUnscopedQuery is returned when a query or scan carries no tenant
// filter at all. Scope is mandatory; there is no global fallback.
var ErrUnscopedQuery = errors.New("vector query requires a conversation or project scope")

// Embedder turns texts into embedding vectors. Implemented by the AI
// service; the index never talks to the embedding model directly.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Metadata is the tenant tagging stored next to each chunk. It is never
// part of the document text.
type Metadata struct {
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	Topic          string     `json:"topic"`
}

// Entry is one stored chunk with its metadata, as returned by Scan
type Entry struct {
	Document string
	Metadata Metadata
}

// Filter restricts a query to chunks whose metadata matches every set
// field (exact-match AND semantics).
type Filter struct {
	ConversationID *uuid.UUID
	ProjectID      *uuid.UUID
	Topic          *string
}

func (f Filter) scoped() bool {
	return f.ConversationID != nil || f.ProjectID != nil
}

// Index is the append-only chunk store backed by Postgres + pgvector.
// Entries are immutable once written; re-indexing the same conversation
// overwrites by deterministic id instead of duplicating.
type Index struct {
	db       *database.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewIndex creates a vector index over the shared database handle
func NewIndex(db *database.DB, embedder Embedder, logger *zap.Logger) *Index {
	return &Index{db: db, embedder: embedder, logger: logger}
}

// EntryID derives the deterministic chunk id from the conversation and
// the chunk's position in the upload sequence.
func EntryID(conversationID uuid.UUID, sequence int) string {
	return fmt.Sprintf("%s_%d", conversationID, sequence)
}

// Add writes one entry per (chunk, topic) pair tagged with the caller's
// tenant metadata. chunks and topics must be index-aligned.
func (ix *Index) Add(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, chunks, topics []string) error {
	if len(chunks) != len(topics) {
		return fmt.Errorf("chunks and topics are not aligned: %d vs %d", len(chunks), len(topics))
	}
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	query := `
		INSERT INTO chunks (id, document, embedding, conversation_id, project_id, topic, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			topic = EXCLUDED.topic
	`

	now := time.Now()
	for i, chunk := range chunks {
		vec := pgvector.NewVector(embeddings[i])
		if _, err := ix.db.ExecContext(ctx, query,
			EntryID(conversationID, i),
			chunk,
			vec,
			conversationID,
			scope.ProjectID,
			topics[i],
			scope.UserID,
			now,
		); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", i, err)
		}
	}

	ix.logger.Debug("indexed_chunks",
		zap.String("conversation_id", conversationID.String()),
		zap.Int("count", len(chunks)),
	)

	return nil
}

// Query runs a similarity search restricted to entries matching the scope
// and every set filter field. Ranked document texts only; metadata does
// not leak to the caller.
func (ix *Index) Query(ctx context.Context, scope models.TenantScope, text string, filter Filter, limit int) ([]string, error) {
	if !filter.scoped() {
		return nil, ErrUnscopedQuery
	}
	if limit <= 0 {
		limit = 5
	}

	embeddings, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	where, args := buildFilter(scope, filter)
	args = append(args, pgvector.NewVector(embeddings[0]))
	orderArg := len(args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT document
		FROM chunks
		%s
		ORDER BY embedding <=> $%d
		LIMIT $%d
	`, where, orderArg, orderArg+1)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return documents, nil
}

// Scan returns every entry matching the scope and filter, unranked, with
// metadata. Used for topic-exact retrieval where the caller already knows
// which topics it wants.
func (ix *Index) Scan(ctx context.Context, scope models.TenantScope, filter Filter) ([]Entry, error) {
	if !filter.scoped() {
		return nil, ErrUnscopedQuery
	}

	where, args := buildFilter(scope, filter)
	query := fmt.Sprintf(`
		SELECT document, conversation_id, project_id, topic
		FROM chunks
		%s
		ORDER BY id
	`, where)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Document, &e.Metadata.ConversationID, &e.Metadata.ProjectID, &e.Metadata.Topic); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return entries, nil
}

// buildFilter assembles the WHERE clause. The user filter from the scope
// is always present; filter fields are ANDed on top.
func buildFilter(scope models.TenantScope, filter Filter) (string, []any) {
	where := "WHERE user_id = $1"
	args := []any{scope.UserID}
	argIndex := 2

	if filter.ConversationID != nil {
		where += fmt.Sprintf(" AND conversation_id = $%d", argIndex)
		args = append(args, *filter.ConversationID)
		argIndex++
	}
	if filter.ProjectID != nil {
		where += fmt.Sprintf(" AND project_id = $%d", argIndex)
		args = append(args, *filter.ProjectID)
		argIndex++
	}
	if filter.Topic != nil {
		where += fmt.Sprintf(" AND topic = $%d", argIndex)
		args = append(args, *filter.Topic)
		argIndex++
	}

	return where, args
}
