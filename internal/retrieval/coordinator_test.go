package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/vector"
)

// fakeSearcher serves canned entries and records the filters it saw
type fakeSearcher struct {
	entries    []vector.Entry
	queryDocs  []string
	queryErr   error
	scanErr    error
	lastFilter vector.Filter
}

func (f *fakeSearcher) Query(_ context.Context, _ models.TenantScope, _ string, filter vector.Filter, _ int) ([]string, error) {
	f.lastFilter = filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryDocs, nil
}

func (f *fakeSearcher) Scan(_ context.Context, _ models.TenantScope, filter vector.Filter) ([]vector.Entry, error) {
	f.lastFilter = filter
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.entries, nil
}

func entry(doc, topic string) vector.Entry {
	return vector.Entry{Document: doc, Metadata: vector.Metadata{Topic: topic}}
}

func TestCoordinator_ByConversation(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	conversationID := uuid.New()

	searcher := &fakeSearcher{queryDocs: []string{"doc a", "doc b"}}
	c := NewCoordinator(searcher, zap.NewNop())

	docs, err := c.ByConversation(context.Background(), scope, conversationID, "how does photosynthesis work", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(docs, []string{"doc a", "doc b"}) {
		t.Errorf("Expected ranked documents, got %v", docs)
	}
	if searcher.lastFilter.ConversationID == nil || *searcher.lastFilter.ConversationID != conversationID {
		t.Errorf("Expected query filtered to conversation %s, got %v", conversationID, searcher.lastFilter.ConversationID)
	}
}

func TestCoordinator_ByConversation_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(&fakeSearcher{}, zap.NewNop())

	docs, err := c.ByConversation(context.Background(), models.NewScope("auth0|user-1"), uuid.New(), "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected no documents, got %v", docs)
	}
}

func TestCoordinator_ByConversation_PropagatesUnscopedError(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{queryErr: vector.ErrUnscopedQuery}
	c := NewCoordinator(searcher, zap.NewNop())

	_, err := c.ByConversation(context.Background(), models.NewScope("auth0|user-1"), uuid.New(), "q", 5)
	if !errors.Is(err, vector.ErrUnscopedQuery) {
		t.Errorf("Expected ErrUnscopedQuery, got %v", err)
	}
}

func TestCoordinator_ByProjectTopics(t *testing.T) {
	t.Parallel()

	scope := models.NewScope("auth0|user-1")
	projectID := uuid.New()

	entries := []vector.Entry{
		entry("chloroplasts capture light", "Photosynthesis"),
		entry("cells divide in phases", "Cell Division"),
		entry("the calvin cycle fixes carbon", "Photosynthesis"),
		entry("water crosses the membrane", "Osmosis"),
	}

	tests := []struct {
		name   string
		topics []string
		want   []string
	}{
		{
			name:   "single topic",
			topics: []string{"Photosynthesis"},
			want:   []string{"chloroplasts capture light", "the calvin cycle fixes carbon"},
		},
		{
			name:   "multiple topics",
			topics: []string{"Photosynthesis", "Osmosis"},
			want:   []string{"chloroplasts capture light", "the calvin cycle fixes carbon", "water crosses the membrane"},
		},
		{
			name:   "no topics means everything",
			topics: nil,
			want:   []string{"chloroplasts capture light", "cells divide in phases", "the calvin cycle fixes carbon", "water crosses the membrane"},
		},
		{
			name:   "unknown topic yields empty",
			topics: []string{"Thermodynamics"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			searcher := &fakeSearcher{entries: entries}
			c := NewCoordinator(searcher, zap.NewNop())

			docs, err := c.ByProjectTopics(context.Background(), scope, projectID, tt.topics)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(docs, tt.want) {
				t.Errorf("ByProjectTopics() = %v, want %v", docs, tt.want)
			}
			if searcher.lastFilter.ProjectID == nil || *searcher.lastFilter.ProjectID != projectID {
				t.Errorf("Expected scan filtered to project %s", projectID)
			}
		})
	}
}

func TestCoordinator_ByProjectTopics_ScanError(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{scanErr: errors.New("db down")}
	c := NewCoordinator(searcher, zap.NewNop())

	_, err := c.ByProjectTopics(context.Background(), models.NewScope("auth0|user-1"), uuid.New(), nil)
	if err == nil {
		t.Fatal("Expected an error when the scan fails")
	}
}
