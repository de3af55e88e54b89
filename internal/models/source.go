package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies how a source was ingested
type SourceType string

const (
	// SourceTypePDF is an uploaded PDF document
	SourceTypePDF SourceType = "pdf"
	// SourceTypeText is inline text pasted by the user
	SourceTypeText SourceType = "text"
	// SourceTypeYouTube is a video transcript fetched from a URL
	SourceTypeYouTube SourceType = "youtube"
)

// Source is one ingested upload. Content is populated only for inline
// text sources; PDFs and transcripts keep just the name/URL reference.
type Source struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	ProjectID uuid.UUID  `json:"project_id"`
	Name      string     `json:"name"`
	Type      SourceType `json:"type"`
	Content   *string    `json:"content,omitempty"`
	URL       *string    `json:"url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
