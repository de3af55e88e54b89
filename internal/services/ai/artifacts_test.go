package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/models"
)

const validQuizJSON = `{
	"subtype": "MCQ",
	"theme": {
		"primaryColor": "#16213e",
		"secondaryColor": "#0f3460",
		"backgroundColor": "#1a1a2e",
		"textColor": "#e0dede"
	},
	"title": "Biology Basics",
	"questions": [
		{"id": 1, "question": "What does photosynthesis need?", "options": ["Sunlight", "Darkness", "Salt", "Iron"], "correctAnswer": 0}
	]
}`

func TestArtifactGenerator_ValidQuiz(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []string{"```json\n" + validQuizJSON + "\n```"}}
	ag := NewArtifactGenerator(gen, zap.NewNop())

	payload, err := ag.Generate(context.Background(), models.ContentTypeQuiz, "Photosynthesis uses sunlight.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("expected a payload")
	}
	if err := models.ValidateArtifact(models.ContentTypeQuiz, payload); err != nil {
		t.Errorf("returned payload fails validation: %v", err)
	}
}

func TestArtifactGenerator_InvalidSubtypeRejected(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []string{`{
		"subtype": "Essay",
		"theme": {"primaryColor": "#000", "secondaryColor": "#111", "backgroundColor": "#222", "textColor": "#fff"},
		"title": "Nope",
		"questions": [{"id": 1}]
	}`}}
	ag := NewArtifactGenerator(gen, zap.NewNop())

	_, err := ag.Generate(context.Background(), models.ContentTypeQuiz, "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for unknown subtype, got %v", err)
	}
}

func TestArtifactGenerator_TimelineRejection(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []string{`{
		"error": "TIMELINE_NOT_SUITABLE",
		"message": "This content does not contain sufficient temporal or chronological elements for timeline creation.",
		"suggestion": "Consider using MindMap, Quiz, or Flashcards for this type of content instead."
	}`}}
	ag := NewArtifactGenerator(gen, zap.NewNop())

	_, err := ag.Generate(context.Background(), models.ContentTypeTimeline, "Cells divide by mitosis.")
	if !errors.Is(err, ErrNotSuitable) {
		t.Errorf("expected ErrNotSuitable, got %v", err)
	}
}

func TestArtifactGenerator_NonJSONResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []string{"Sorry, I cannot help with that."}}
	ag := NewArtifactGenerator(gen, zap.NewNop())

	_, err := ag.Generate(context.Background(), models.ContentTypeFlashcard, "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestArtifactGenerator_UnknownContentType(t *testing.T) {
	t.Parallel()

	ag := NewArtifactGenerator(&fakeGenerator{}, zap.NewNop())

	_, err := ag.Generate(context.Background(), models.ContentType("poster"), "text")
	if err == nil {
		t.Error("expected error for unknown content type")
	}
}

func TestValidateArtifact_Flashcards(t *testing.T) {
	t.Parallel()

	valid := []byte(`{
		"title": "Deck",
		"theme": {"primaryColor": "#4CAF50", "backgroundColor": "#E8F5E9", "textColor": "#2E7D32"},
		"cards": [{"front": "Q", "back": "A"}]
	}`)
	if err := models.ValidateArtifact(models.ContentTypeFlashcard, valid); err != nil {
		t.Errorf("valid deck rejected: %v", err)
	}

	missingBack := []byte(`{
		"title": "Deck",
		"theme": {"primaryColor": "#4CAF50", "backgroundColor": "#E8F5E9", "textColor": "#2E7D32"},
		"cards": [{"front": "Q", "back": ""}]
	}`)
	if err := models.ValidateArtifact(models.ContentTypeFlashcard, missingBack); err == nil {
		t.Error("card without a back should be rejected")
	}
}

func TestValidateArtifact_Mindmap(t *testing.T) {
	t.Parallel()

	noRoot := []byte(`{
		"title": "Map",
		"theme": {"primaryColor": "#2196f3", "backgroundColor": "#E3F2FD", "textColor": "#0d47a1"},
		"nodes": [{"id": "n1", "label": "Child", "level": 1}]
	}`)
	if err := models.ValidateArtifact(models.ContentTypeMindmap, noRoot); err == nil {
		t.Error("mindmap without a root node should be rejected")
	}
}
