package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/queue"
)

// fakeChunker returns one chunk per input block labeled with canned topics
type fakeChunker struct {
	chunkFunc func(ctx context.Context, contents []string) ([]string, []string, error)
}

func (f *fakeChunker) ChunkWithTopics(ctx context.Context, contents []string) ([]string, []string, error) {
	if f.chunkFunc != nil {
		return f.chunkFunc(ctx, contents)
	}
	chunks := make([]string, 0, len(contents))
	topics := make([]string, 0, len(contents))
	for i, c := range contents {
		chunks = append(chunks, c)
		topics = append(topics, []string{"Photosynthesis", "Cell Division", "Mitosis"}[i%3])
	}
	return chunks, topics, nil
}

// fakeIndex records Add calls
type fakeIndex struct {
	addFunc func(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, chunks, topics []string) error
	added   int
}

func (f *fakeIndex) Add(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, chunks, topics []string) error {
	f.added += len(chunks)
	if f.addFunc != nil {
		return f.addFunc(ctx, scope, conversationID, chunks, topics)
	}
	return nil
}

// fakeTopicStore is an in-memory topic set
type fakeTopicStore struct {
	topics    []string
	writeErr  error
	lastWrite []string
}

func (f *fakeTopicStore) Write(_ context.Context, _ models.TenantScope, _ uuid.UUID, topics []string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.topics = topics
	f.lastWrite = topics
	return nil
}

func (f *fakeTopicStore) Read(_ context.Context, _ models.TenantScope, projectID uuid.UUID) (*models.TopicSet, error) {
	if f.topics == nil {
		return nil, database.ErrNotFound
	}
	return &models.TopicSet{ProjectID: projectID, Topics: f.topics}, nil
}

// fakeSourceStore records created sources
type fakeSourceStore struct {
	createErr error
	created   []*models.Source
}

func (f *fakeSourceStore) Create(_ context.Context, _ models.TenantScope, source *models.Source) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, source)
	return nil
}

// fakeConvStore records created conversations
type fakeConvStore struct {
	created []*models.Conversation
}

func (f *fakeConvStore) Create(_ context.Context, _ models.TenantScope, conv *models.Conversation) error {
	f.created = append(f.created, conv)
	return nil
}

func (f *fakeConvStore) GetByID(context.Context, models.TenantScope, uuid.UUID) (*models.Conversation, error) {
	return nil, database.ErrNotFound
}

func (f *fakeConvStore) ListByUser(context.Context, models.TenantScope) ([]*models.Conversation, error) {
	return f.created, nil
}

func (f *fakeConvStore) AppendMessage(context.Context, models.TenantScope, *models.ChatMessage) error {
	return nil
}

func (f *fakeConvStore) ListMessages(context.Context, models.TenantScope, uuid.UUID) ([]*models.ChatMessage, error) {
	return nil, nil
}

// fakeJobQueue records enqueued jobs
type fakeJobQueue struct {
	enqueued []*queue.Job
}

func (f *fakeJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeJobQueue) Dequeue(context.Context) (*queue.Message, error) { return nil, nil }

func (f *fakeJobQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (f *fakeJobQueue) Close() error                      { return nil }
func (f *fakeJobQueue) HealthCheck(context.Context) error { return nil }

var (
	_ Chunker                    = (*fakeChunker)(nil)
	_ ChunkIndex                 = (*fakeIndex)(nil)
	_ database.TopicStore        = (*fakeTopicStore)(nil)
	_ database.SourceStore       = (*fakeSourceStore)(nil)
	_ database.ConversationStore = (*fakeConvStore)(nil)
	_ queue.JobQueue             = (*fakeJobQueue)(nil)
)

func newTestService(t *testing.T, chunker *fakeChunker, index *fakeIndex, topicStore *fakeTopicStore, sourceStore *fakeSourceStore, convStore *fakeConvStore, jobQueue *fakeJobQueue) *Service {
	t.Helper()
	extractors := map[models.SourceType]Extractor{
		models.SourceTypeText: TextExtractor{},
	}
	return NewService(extractors, chunker, index, topicStore, sourceStore, convStore, jobQueue, zap.NewNop())
}

func TestService_Ingest(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	chunker := &fakeChunker{}
	index := &fakeIndex{}
	topicStore := &fakeTopicStore{}
	sourceStore := &fakeSourceStore{}
	convStore := &fakeConvStore{}

	svc := newTestService(t, chunker, index, topicStore, sourceStore, convStore, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "bio-notes", Type: models.SourceTypeText, Text: "Plants convert light into chemical energy."},
		{Name: "mitosis-notes", Type: models.SourceTypeText, Text: "Cells divide through a sequence of phases."},
	}

	result, err := svc.Ingest(context.Background(), scope, projectID, "Biology upload", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ConversationID == uuid.Nil {
		t.Error("Expected a conversation ID")
	}
	if len(result.SourceIDs) != 2 {
		t.Errorf("Expected 2 source IDs, got %d", len(result.SourceIDs))
	}
	if result.ChunkCount != 2 {
		t.Errorf("Expected 2 chunks, got %d", result.ChunkCount)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Expected no skipped items, got %v", result.Skipped)
	}

	if index.added != 2 {
		t.Errorf("Expected 2 chunks indexed, got %d", index.added)
	}
	if len(convStore.created) != 1 {
		t.Fatalf("Expected 1 conversation created, got %d", len(convStore.created))
	}
	if convStore.created[0].Title != "Biology upload" {
		t.Errorf("Expected conversation title to be set, got %q", convStore.created[0].Title)
	}
	if len(sourceStore.created) != 2 {
		t.Errorf("Expected 2 sources persisted, got %d", len(sourceStore.created))
	}
	if !reflect.DeepEqual(topicStore.lastWrite, []string{"Photosynthesis", "Cell Division"}) {
		t.Errorf("Expected merged topics written, got %v", topicStore.lastWrite)
	}
}

func TestService_Ingest_MergesWithExistingTopics(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	topicStore := &fakeTopicStore{topics: []string{"Osmosis", "Photosynthesis"}}
	svc := newTestService(t, &fakeChunker{}, &fakeIndex{}, topicStore, &fakeSourceStore{}, &fakeConvStore{}, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "notes", Type: models.SourceTypeText, Text: "Light reactions and the Calvin cycle."},
	}

	result, err := svc.Ingest(context.Background(), scope, projectID, "Follow-up", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Osmosis", "Photosynthesis"}
	if !reflect.DeepEqual(result.Topics, want) {
		t.Errorf("Expected topics %v, got %v", want, result.Topics)
	}
}

func TestService_Ingest_SkipsFailedExtractions(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	sourceStore := &fakeSourceStore{}
	svc := newTestService(t, &fakeChunker{}, &fakeIndex{}, &fakeTopicStore{}, sourceStore, &fakeConvStore{}, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "good", Type: models.SourceTypeText, Text: "Usable content."},
		{Name: "empty", Type: models.SourceTypeText, Text: "   "},
		{Name: "video", Type: models.SourceTypeYouTube, URL: "https://youtu.be/x"},
	}

	result, err := svc.Ingest(context.Background(), scope, projectID, "Mixed batch", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.SourceIDs) != 1 {
		t.Errorf("Expected 1 source ID, got %d", len(result.SourceIDs))
	}
	wantSkipped := []string{"empty", "video"}
	if !reflect.DeepEqual(result.Skipped, wantSkipped) {
		t.Errorf("Expected skipped %v, got %v", wantSkipped, result.Skipped)
	}
	if len(sourceStore.created) != 1 || sourceStore.created[0].Name != "good" {
		t.Errorf("Expected only the good source persisted, got %v", sourceStore.created)
	}
}

func TestService_Ingest_AllItemsFail(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	svc := newTestService(t, &fakeChunker{}, &fakeIndex{}, &fakeTopicStore{}, &fakeSourceStore{}, &fakeConvStore{}, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "blank", Type: models.SourceTypeText, Text: ""},
	}

	_, err := svc.Ingest(context.Background(), scope, projectID, "Bad batch", items)
	if !errors.Is(err, ErrNoUsableSources) {
		t.Errorf("Expected ErrNoUsableSources, got %v", err)
	}
}

func TestService_Ingest_ChunkerFailureAborts(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	chunker := &fakeChunker{
		chunkFunc: func(context.Context, []string) ([]string, []string, error) {
			return nil, nil, errors.New("provider down")
		},
	}
	convStore := &fakeConvStore{}
	svc := newTestService(t, chunker, &fakeIndex{}, &fakeTopicStore{}, &fakeSourceStore{}, convStore, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "notes", Type: models.SourceTypeText, Text: "Some content."},
	}

	_, err := svc.Ingest(context.Background(), scope, projectID, "Upload", items)
	if err == nil {
		t.Fatal("Expected an error when chunking fails")
	}
	if len(convStore.created) != 0 {
		t.Errorf("Expected no conversation created on chunk failure, got %d", len(convStore.created))
	}
}

func TestService_Ingest_IndexFailureAborts(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	index := &fakeIndex{
		addFunc: func(context.Context, models.TenantScope, uuid.UUID, []string, []string) error {
			return errors.New("pgvector unavailable")
		},
	}
	topicStore := &fakeTopicStore{}
	svc := newTestService(t, &fakeChunker{}, index, topicStore, &fakeSourceStore{}, &fakeConvStore{}, &fakeJobQueue{})

	items := []SourceItem{
		{Name: "notes", Type: models.SourceTypeText, Text: "Some content."},
	}

	_, err := svc.Ingest(context.Background(), scope, projectID, "Upload", items)
	if err == nil {
		t.Fatal("Expected an error when indexing fails")
	}
	if topicStore.lastWrite != nil {
		t.Errorf("Expected no topic write after index failure, got %v", topicStore.lastWrite)
	}
}

func TestService_Ingest_TopicWriteFailureEnqueuesReconcile(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	topicStore := &fakeTopicStore{writeErr: errors.New("db down")}
	jobQueue := &fakeJobQueue{}
	svc := newTestService(t, &fakeChunker{}, &fakeIndex{}, topicStore, &fakeSourceStore{}, &fakeConvStore{}, jobQueue)

	items := []SourceItem{
		{Name: "notes", Type: models.SourceTypeText, Text: "Some content."},
	}

	result, err := svc.Ingest(context.Background(), scope, projectID, "Upload", items)
	if err != nil {
		t.Fatalf("Expected upload to succeed despite topic write failure, got %v", err)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 reconcile job enqueued, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeReconcileTopics {
		t.Errorf("Expected reconcile_topics job, got %s", job.Type)
	}
	if job.ProjectID == nil || *job.ProjectID != projectID {
		t.Errorf("Expected job scoped to project %s, got %v", projectID, job.ProjectID)
	}
	if !reflect.DeepEqual(job.Topics, result.Topics) {
		t.Errorf("Expected job to carry merged topics %v, got %v", result.Topics, job.Topics)
	}
}

func TestService_Ingest_SourceWriteFailureEnqueuesReconcile(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	sourceStore := &fakeSourceStore{createErr: errors.New("db down")}
	jobQueue := &fakeJobQueue{}
	svc := newTestService(t, &fakeChunker{}, &fakeIndex{}, &fakeTopicStore{}, sourceStore, &fakeConvStore{}, jobQueue)

	items := []SourceItem{
		{Name: "notes", Type: models.SourceTypeText, Text: "Some content."},
	}

	result, err := svc.Ingest(context.Background(), scope, projectID, "Upload", items)
	if err != nil {
		t.Fatalf("Expected upload to succeed despite source write failure, got %v", err)
	}
	if len(result.SourceIDs) != 1 {
		t.Errorf("Expected source ID despite write failure, got %d", len(result.SourceIDs))
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 reconcile job enqueued, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeReconcileSource {
		t.Errorf("Expected reconcile_source job, got %s", job.Type)
	}
	if job.Metadata["name"] != "notes" {
		t.Errorf("Expected source name in metadata, got %v", job.Metadata["name"])
	}
	if job.Metadata["content"] != "Some content." {
		t.Errorf("Expected inline text in metadata, got %v", job.Metadata["content"])
	}
}
