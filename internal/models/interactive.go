package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of generated learning artifact
type ContentType string

const (
	// ContentTypeQuiz is a generated quiz
	ContentTypeQuiz ContentType = "quiz"
	// ContentTypeTimeline is a generated timeline
	ContentTypeTimeline ContentType = "timeline"
	// ContentTypeMindmap is a generated mindmap
	ContentTypeMindmap ContentType = "mindmap"
	// ContentTypeFlashcard is a generated flashcard set
	ContentTypeFlashcard ContentType = "flashcard"
)

// ValidContentType reports whether ct is a known artifact kind
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentTypeQuiz, ContentTypeTimeline, ContentTypeMindmap, ContentTypeFlashcard:
		return true
	default:
		return false
	}
}

// InteractiveContent is one generated artifact. InteractID alone is enough
// to fetch it; the user filter on reads is authorization, not identity.
type InteractiveContent struct {
	InteractID  uuid.UUID       `json:"interact_id"`
	ProjectID   uuid.UUID       `json:"project_id"`
	ContentType ContentType     `json:"content_type"`
	ContentJSON json.RawMessage `json:"content_json"`
	TopicsUsed  []string        `json:"topics_used"`
	UserID      string          `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InteractiveHistory is the append-only audit row written alongside each
// generated artifact. Queried most-recent-first with a caller limit.
type InteractiveHistory struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"user_id"`
	ProjectID   uuid.UUID   `json:"project_id"`
	ContentType ContentType `json:"content_type"`
	Topics      []string    `json:"topics"`
	CreatedAt   time.Time   `json:"created_at"`
}
