package models

import "github.com/google/uuid"

// TenantScope identifies the tenant a storage operation acts on behalf of.
// Every relational read/write and every vector index query takes one, so a
// missing tenant filter shows up in the signature rather than at runtime.
type TenantScope struct {
	UserID    string
	ProjectID *uuid.UUID
}

// NewScope returns a scope for a user without a project.
func NewScope(userID string) TenantScope {
	return TenantScope{UserID: userID}
}

// WithProject returns a copy of the scope narrowed to a project.
func (s TenantScope) WithProject(projectID uuid.UUID) TenantScope {
	s.ProjectID = &projectID
	return s
}
