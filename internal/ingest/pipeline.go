package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/queue"
)

// ErrNoUsableSources is returned when every item in an upload batch failed
// extraction and there is nothing to index.
var ErrNoUsableSources = errors.New("no usable sources in upload")

// Chunker splits extracted text into topic-labeled chunks
type Chunker interface {
	ChunkWithTopics(ctx context.Context, contents []string) (chunks, topics []string, err error)
}

// ChunkIndex is the vector index write surface the pipeline depends on
type ChunkIndex interface {
	Add(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, chunks, topics []string) error
}

// Result reports what an ingest run produced
type Result struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	SourceIDs      []uuid.UUID `json:"source_ids"`
	Topics         []string    `json:"topics"`
	ChunkCount     int         `json:"chunk_count"`
	Skipped        []string    `json:"skipped,omitempty"` // names of items that failed extraction
}

// Service runs the ingest pipeline: extract each uploaded item, chunk and
// label the text, write the chunks to the vector index, then merge the
// project topic set and persist the relational rows. The vector write goes
// first; a relational failure afterwards enqueues a reconcile job instead
// of failing the upload.
type Service struct {
	extractors map[models.SourceType]Extractor
	chunker    Chunker
	index      ChunkIndex
	topicRepo  database.TopicStore
	sourceRepo database.SourceStore
	convRepo   database.ConversationStore
	jobQueue   queue.JobQueue
	logger     *zap.Logger

	// serializes the read-merge-write topic cycle per project
	projectLocks keyedMutex
}

// NewService creates an ingest service
func NewService(
	extractors map[models.SourceType]Extractor,
	chunker Chunker,
	index ChunkIndex,
	topicRepo database.TopicStore,
	sourceRepo database.SourceStore,
	convRepo database.ConversationStore,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *Service {
	return &Service{
		extractors: extractors,
		chunker:    chunker,
		index:      index,
		topicRepo:  topicRepo,
		sourceRepo: sourceRepo,
		convRepo:   convRepo,
		jobQueue:   jobQueue,
		logger:     logger,
	}
}

// Ingest processes an upload batch for a project. Items that fail
// extraction are skipped and reported in the result; the batch fails only
// when nothing could be extracted or the chunk/index phase fails.
func (s *Service) Ingest(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, title string, items []SourceItem) (*Result, error) {
	scope = scope.WithProject(projectID)

	texts := make([]string, 0, len(items))
	usable := make([]SourceItem, 0, len(items))
	var skipped []string

	for _, item := range items {
		extractor, ok := s.extractors[item.Type]
		if !ok {
			s.logger.Warn("no_extractor_for_source",
				zap.String("name", item.Name),
				zap.String("type", string(item.Type)),
			)
			skipped = append(skipped, item.Name)
			continue
		}

		text, err := extractor.Extract(ctx, item)
		if err != nil {
			s.logger.Warn("source_extraction_failed",
				zap.String("name", item.Name),
				zap.Error(err),
			)
			skipped = append(skipped, item.Name)
			continue
		}

		texts = append(texts, text)
		usable = append(usable, item)
	}

	if len(texts) == 0 {
		return nil, ErrNoUsableSources
	}

	chunks, topics, err := s.chunker.ChunkWithTopics(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk sources: %w", err)
	}

	conversationID := uuid.New()
	conv := &models.Conversation{
		ID:        conversationID,
		Title:     title,
		UserID:    scope.UserID,
		ProjectID: &projectID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.convRepo.Create(ctx, scope, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	// Vector index first. Chunk ids are deterministic per conversation, so
	// replays overwrite instead of duplicating.
	if err := s.index.Add(ctx, scope, conversationID, chunks, topics); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	merged, err := s.mergeProjectTopics(ctx, scope, projectID, topics)
	if err != nil {
		return nil, err
	}

	sourceIDs, err := s.persistSources(ctx, scope, projectID, usable)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ingest_complete",
		zap.String("project_id", projectID.String()),
		zap.String("conversation_id", conversationID.String()),
		zap.Int("sources", len(usable)),
		zap.Int("chunks", len(chunks)),
		zap.Int("topics", len(merged)),
		zap.Int("skipped", len(skipped)),
	)

	return &Result{
		ConversationID: conversationID,
		SourceIDs:      sourceIDs,
		Topics:         merged,
		ChunkCount:     len(chunks),
		Skipped:        skipped,
	}, nil
}

// mergeProjectTopics runs the read-merge-write cycle for the project topic
// set under the per-project lock. A write failure after the vector index
// already has the chunks is repaired asynchronously, not surfaced.
func (s *Service) mergeProjectTopics(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, incoming []string) ([]string, error) {
	unlock := s.projectLocks.lock(projectID.String())
	defer unlock()

	var existing []string
	set, err := s.topicRepo.Read(ctx, scope, projectID)
	switch {
	case err == nil:
		existing = set.Topics
	case errors.Is(err, database.ErrNotFound):
		// first upload for this project
	default:
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}

	merged := MergeTopics(existing, incoming)

	if err := s.topicRepo.Write(ctx, scope, projectID, merged); err != nil {
		s.logger.Error("topic_write_failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		s.enqueueTopicReconcile(ctx, scope, projectID, merged)
	}

	return merged, nil
}

// persistSources writes one source row per usable item. A row that fails
// is reconciled asynchronously so the upload still succeeds.
func (s *Service) persistSources(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, items []SourceItem) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(items))

	for _, item := range items {
		source := &models.Source{
			ID:        uuid.New(),
			UserID:    scope.UserID,
			ProjectID: projectID,
			Name:      item.Name,
			Type:      item.Type,
			CreatedAt: time.Now(),
		}
		if item.URL != "" {
			url := item.URL
			source.URL = &url
		}
		if item.Type == models.SourceTypeText {
			content := item.Text
			source.Content = &content
		}

		if err := s.sourceRepo.Create(ctx, scope, source); err != nil {
			s.logger.Error("source_write_failed",
				zap.String("name", item.Name),
				zap.Error(err),
			)
			s.enqueueSourceReconcile(ctx, scope, projectID, source)
		}

		ids = append(ids, source.ID)
	}

	return ids, nil
}

func (s *Service) enqueueTopicReconcile(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, merged []string) {
	if s.jobQueue == nil {
		return
	}

	job := queue.NewJob(queue.JobTypeReconcileTopics, scope.UserID, &projectID)
	job.Topics = merged

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.logger.Error("reconcile_enqueue_failed",
			zap.String("job_type", string(job.Type)),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) enqueueSourceReconcile(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, source *models.Source) {
	if s.jobQueue == nil {
		return
	}

	job := queue.NewJob(queue.JobTypeReconcileSource, scope.UserID, &projectID)
	job.Metadata["source_id"] = source.ID.String()
	job.Metadata["name"] = source.Name
	job.Metadata["type"] = string(source.Type)
	if source.URL != nil {
		job.Metadata["url"] = *source.URL
	}
	if source.Content != nil {
		// Inline text lives only in this row; without it the replayed
		// insert would persist a NULL body.
		job.Metadata["content"] = *source.Content
	}

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.logger.Error("reconcile_enqueue_failed",
			zap.String("job_type", string(job.Type)),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
}

// keyedMutex hands out one mutex per key. Keys are never evicted; the
// per-project footprint is a single mutex.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
