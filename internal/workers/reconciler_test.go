package workers

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/queue"
)

// mockTopicStore is a mock implementation of TopicStore
type mockTopicStore struct {
	topics    []string // current stored set, nil means no row yet
	writeFunc func(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) error
	readErr   error
	writes    int
}

func (m *mockTopicStore) Write(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) error {
	m.writes++
	if m.writeFunc != nil {
		return m.writeFunc(ctx, scope, projectID, topics)
	}
	m.topics = topics
	return nil
}

func (m *mockTopicStore) Read(ctx context.Context, scope models.TenantScope, projectID uuid.UUID) (*models.TopicSet, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.topics == nil {
		return nil, database.ErrNotFound
	}
	return &models.TopicSet{ProjectID: projectID, UserID: scope.UserID, Topics: m.topics}, nil
}

// Ensure mock implements interface
var _ database.TopicStore = (*mockTopicStore)(nil)

// mockSourceStore is a mock implementation of SourceStore
type mockSourceStore struct {
	createFunc func(ctx context.Context, scope models.TenantScope, source *models.Source) error
	created    []*models.Source
}

func (m *mockSourceStore) Create(ctx context.Context, scope models.TenantScope, source *models.Source) error {
	m.created = append(m.created, source)
	if m.createFunc != nil {
		return m.createFunc(ctx, scope, source)
	}
	return nil
}

var _ database.SourceStore = (*mockSourceStore)(nil)

// mockJobQueue records enqueued jobs
type mockJobQueue struct {
	enqueued []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*queue.Message, error) { return nil, nil }

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error                        { return nil }
func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

func TestReconciler_ProcessReconcileTopicsJob(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()

	tests := []struct {
		name    string
		job     *queue.Job
		store   *mockTopicStore
		wantErr bool
	}{
		{
			name: "successful write",
			job: &queue.Job{
				ID:        uuid.New(),
				Type:      queue.JobTypeReconcileTopics,
				UserID:    "auth0|user-1",
				ProjectID: &projectID,
				Topics:    []string{"Photosynthesis", "Cell Division"},
			},
			store:   &mockTopicStore{},
			wantErr: false,
		},
		{
			name: "missing project id",
			job: &queue.Job{
				ID:     uuid.New(),
				Type:   queue.JobTypeReconcileTopics,
				UserID: "auth0|user-1",
				Topics: []string{"Photosynthesis"},
			},
			store:   &mockTopicStore{},
			wantErr: true,
		},
		{
			name: "empty topics payload",
			job: &queue.Job{
				ID:        uuid.New(),
				Type:      queue.JobTypeReconcileTopics,
				UserID:    "auth0|user-1",
				ProjectID: &projectID,
			},
			store:   &mockTopicStore{},
			wantErr: true,
		},
		{
			name: "read failure propagates",
			job: &queue.Job{
				ID:        uuid.New(),
				Type:      queue.JobTypeReconcileTopics,
				UserID:    "auth0|user-1",
				ProjectID: &projectID,
				Topics:    []string{"Photosynthesis"},
			},
			store:   &mockTopicStore{readErr: errors.New("db down")},
			wantErr: true,
		},
		{
			name: "write failure propagates",
			job: &queue.Job{
				ID:        uuid.New(),
				Type:      queue.JobTypeReconcileTopics,
				UserID:    "auth0|user-1",
				ProjectID: &projectID,
				Topics:    []string{"Photosynthesis"},
			},
			store: &mockTopicStore{
				writeFunc: func(context.Context, models.TenantScope, uuid.UUID, []string) error {
					return errors.New("db down")
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReconciler(tt.store, &mockSourceStore{}, nil)
			err := r.ProcessReconcileTopicsJob(context.Background(), tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("ProcessReconcileTopicsJob() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReconciler_ProcessReconcileTopicsJob_ScopesToJobUser(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	var gotScope models.TenantScope
	store := &mockTopicStore{
		writeFunc: func(_ context.Context, scope models.TenantScope, _ uuid.UUID, _ []string) error {
			gotScope = scope
			return nil
		},
	}

	r := NewReconciler(store, &mockSourceStore{}, nil)
	job := &queue.Job{
		ID:        uuid.New(),
		Type:      queue.JobTypeReconcileTopics,
		UserID:    "auth0|user-2",
		ProjectID: &projectID,
		Topics:    []string{"Mitosis"},
	}

	if err := r.ProcessReconcileTopicsJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotScope.UserID != "auth0|user-2" {
		t.Errorf("Expected write scoped to job user, got %q", gotScope.UserID)
	}
}

// A stale job replayed after a later ingest already merged its topics must
// not shrink the stored set back to the job's payload.
func TestReconciler_ProcessReconcileTopicsJob_MergesIntoCurrentSet(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	store := &mockTopicStore{topics: []string{"Photosynthesis", "Genetics"}}

	r := NewReconciler(store, &mockSourceStore{}, nil)
	job := &queue.Job{
		ID:        uuid.New(),
		Type:      queue.JobTypeReconcileTopics,
		UserID:    "auth0|user-1",
		ProjectID: &projectID,
		Topics:    []string{"Photosynthesis"},
	}

	if err := r.ProcessReconcileTopicsJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Photosynthesis", "Genetics"}
	if !reflect.DeepEqual(store.topics, want) {
		t.Errorf("Expected stored topics %v, got %v", want, store.topics)
	}
}

func TestReconciler_ProcessReconcileTopicsJob_AddsNewTopics(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	store := &mockTopicStore{topics: []string{"Photosynthesis"}}

	r := NewReconciler(store, &mockSourceStore{}, nil)
	job := &queue.Job{
		ID:        uuid.New(),
		Type:      queue.JobTypeReconcileTopics,
		UserID:    "auth0|user-1",
		ProjectID: &projectID,
		Topics:    []string{"Genetics", "Photosynthesis"},
	}

	if err := r.ProcessReconcileTopicsJob(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Photosynthesis", "Genetics"}
	if !reflect.DeepEqual(store.topics, want) {
		t.Errorf("Expected stored topics %v, got %v", want, store.topics)
	}
}

func TestReconciler_ProcessReconcileSourceJob(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	sourceID := uuid.New()

	validMetadata := map[string]any{
		"source_id": sourceID.String(),
		"name":      "notes.pdf",
		"type":      "pdf",
	}

	tests := []struct {
		name     string
		metadata map[string]any
		wantErr  bool
	}{
		{name: "valid payload", metadata: validMetadata, wantErr: false},
		{name: "missing source id", metadata: map[string]any{"name": "notes.pdf", "type": "pdf"}, wantErr: true},
		{name: "bad uuid", metadata: map[string]any{"source_id": "nope", "name": "notes.pdf", "type": "pdf"}, wantErr: true},
		{name: "missing name", metadata: map[string]any{"source_id": sourceID.String(), "type": "pdf"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &mockSourceStore{}
			r := NewReconciler(&mockTopicStore{}, store, nil)
			job := &queue.Job{
				ID:        uuid.New(),
				Type:      queue.JobTypeReconcileSource,
				UserID:    "auth0|user-1",
				ProjectID: &projectID,
				Metadata:  tt.metadata,
			}
			err := r.ProcessReconcileSourceJob(context.Background(), job)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessReconcileSourceJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if len(store.created) != 1 {
					t.Fatalf("Expected 1 source created, got %d", len(store.created))
				}
				created := store.created[0]
				if created.ID != sourceID {
					t.Errorf("Expected source ID %s, got %s", sourceID, created.ID)
				}
				if created.ProjectID != projectID {
					t.Errorf("Expected project ID %s, got %s", projectID, created.ProjectID)
				}
				if created.Type != models.SourceTypePDF {
					t.Errorf("Expected type pdf, got %s", created.Type)
				}
			}
		})
	}
}

func TestSourceFromMetadata_URL(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	sourceID := uuid.New()
	job := &queue.Job{
		UserID:    "auth0|user-1",
		ProjectID: &projectID,
		Metadata: map[string]any{
			"source_id": sourceID.String(),
			"name":      "Intro to Mitosis",
			"type":      "youtube",
			"url":       "https://youtu.be/abc123",
		},
	}

	source, err := sourceFromMetadata(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.URL == nil || *source.URL != "https://youtu.be/abc123" {
		t.Errorf("Expected URL to be carried through, got %v", source.URL)
	}
}

// Inline text sources exist only in the sources table, so a reconciled
// row must get its body back from the job metadata.
func TestSourceFromMetadata_InlineContent(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	sourceID := uuid.New()
	job := &queue.Job{
		UserID:    "auth0|user-1",
		ProjectID: &projectID,
		Metadata: map[string]any{
			"source_id": sourceID.String(),
			"name":      "lecture notes",
			"type":      "text",
			"content":   "Photosynthesis converts light energy into chemical energy.",
		},
	}

	source, err := sourceFromMetadata(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Content == nil || *source.Content != "Photosynthesis converts light energy into chemical energy." {
		t.Errorf("Expected content to be carried through, got %v", source.Content)
	}
}
