package models

import (
	"time"

	"github.com/google/uuid"
)

// Project scopes topics, sources and generated artifacts for one user.
type Project struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// TopicSet is the deduplicated, first-seen-ordered topic list for a
// project. Exactly one row per project; replaced wholesale on merge.
type TopicSet struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    string    `json:"user_id"`
	Topics    []string  `json:"topics"`
	UpdatedAt time.Time `json:"updated_at"`
}
