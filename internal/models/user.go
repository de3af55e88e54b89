package models

import (
	"time"
)

// User represents an authenticated user. The ID is the stable subject
// assigned by the external identity provider, so it is a string rather
// than a locally generated UUID.
type User struct {
	ID            string     `json:"user_id"`
	Email         string     `json:"email"`
	Name          *string    `json:"name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}
