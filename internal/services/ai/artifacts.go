package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/models"
)

// ErrNotSuitable indicates the provider judged the content unfit for the
// requested artifact kind (currently only timelines reject content that
// has no temporal structure).
var ErrNotSuitable = errors.New("content not suitable for this artifact type")

// ArtifactGenerator turns retrieved source material into a validated
// learning artifact payload. Validation happens here, at the boundary
// where the provider's output is accepted; storage treats the payload as
// opaque JSON afterwards.
type ArtifactGenerator struct {
	generator Generator
	logger    *zap.Logger
}

// NewArtifactGenerator creates a new artifact generator
func NewArtifactGenerator(generator Generator, logger *zap.Logger) *ArtifactGenerator {
	return &ArtifactGenerator{generator: generator, logger: logger}
}

type rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Generate produces a validated artifact payload of the given kind from
// the source text. No partial artifact escapes: a response that fails
// validation is discarded and the error surfaced.
func (g *ArtifactGenerator) Generate(ctx context.Context, contentType models.ContentType, sourceText string) (json.RawMessage, error) {
	prompt, err := promptFor(contentType)
	if err != nil {
		return nil, err
	}

	raw, err := g.generator.Generate(ctx, prompt+sourceText)
	if err != nil {
		return nil, err
	}

	cleaned := StripCodeFence(raw)
	payload := json.RawMessage(cleaned)

	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: artifact payload is not valid JSON", ErrMalformedResponse)
	}

	var rej rejection
	if err := json.Unmarshal(payload, &rej); err == nil && rej.Error != "" {
		g.logger.Info("artifact_rejected_by_provider",
			zap.String("content_type", string(contentType)),
			zap.String("reason", rej.Error),
		)
		return nil, fmt.Errorf("%w: %s", ErrNotSuitable, rej.Message)
	}

	if err := models.ValidateArtifact(contentType, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return payload, nil
}

func promptFor(contentType models.ContentType) (string, error) {
	switch contentType {
	case models.ContentTypeQuiz:
		return quizPrompt, nil
	case models.ContentTypeTimeline:
		return timelinePrompt, nil
	case models.ContentTypeMindmap:
		return mindmapPrompt, nil
	case models.ContentTypeFlashcard:
		return flashcardPrompt, nil
	default:
		return "", fmt.Errorf("unknown content type: %s", contentType)
	}
}
