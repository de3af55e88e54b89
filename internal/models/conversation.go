package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes who authored a chat message
type MessageType string

const (
	// MessageTypeUser is a message written by the user
	MessageTypeUser MessageType = "user"
	// MessageTypeAssistant is a generated reply
	MessageTypeAssistant MessageType = "assistant"
)

// Conversation groups chat messages and indexed chunks. Created lazily on
// the first message or explicitly at ingestion time.
type Conversation struct {
	ID        uuid.UUID  `json:"conversation_id"`
	Title     string     `json:"title"`
	UserID    string     `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ChatMessage is one turn in a conversation. Append-only, ordered by
// timestamp ascending.
type ChatMessage struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	MessageType    MessageType `json:"message_type"`
	Content        string      `json:"content"`
	UserID         string      `json:"user_id"`
	Timestamp      time.Time   `json:"timestamp"`
}
