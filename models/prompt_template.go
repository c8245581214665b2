package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a saved prompt a user can reuse. Public templates
// are visible to everyone; private ones only to their creator and to
// admins.
type PromptTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title" validate:"required"`
	Content   string    `json:"content" db:"content" validate:"required"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the PromptTemplate model
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}

// NewPromptTemplate creates a template owned by the given user.
func NewPromptTemplate(title, content, createdBy string, isPublic bool) *PromptTemplate {
	return &PromptTemplate{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		CreatedBy: createdBy,
		IsPublic:  isPublic,
		CreatedAt: time.Now(),
	}
}

// VisibleTo reports whether the user may read this template.
func (t *PromptTemplate) VisibleTo(userID string, isAdmin bool) bool {
	return isAdmin || t.IsPublic || t.CreatedBy == userID
}
