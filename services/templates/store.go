// Package templates manages saved prompt templates: per-user
// snippets that can optionally be shared with everyone.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
)

// ErrTemplateNotFound is returned when the template does not exist or
// the caller may not see it
var ErrTemplateNotFound = errors.New("template not found")

// ErrInvalidTemplate is returned when a template misses its title or
// content
var ErrInvalidTemplate = errors.New("template title and content are required")

// Store owns the saved prompt templates
type Store struct {
	repo   repositories.TemplateRepository
	logger *zap.Logger
}

// NewStore creates a template store over the given repository
func NewStore(repo repositories.TemplateRepository, logger *zap.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// Save validates and stores a new template owned by the caller.
func (s *Store) Save(ctx context.Context, title, content, createdBy string, isPublic bool) (*models.PromptTemplate, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, ErrInvalidTemplate
	}

	template := models.NewPromptTemplate(title, content, createdBy, isPublic)
	if err := s.repo.Insert(ctx, template); err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}

	s.logger.Info("template saved",
		zap.String("template_id", template.ID.String()),
		zap.String("created_by", createdBy),
		zap.Bool("is_public", isPublic))
	return template, nil
}

// Get returns one template, restricted to its owner and public
// templates unless the caller is an admin
func (s *Store) Get(ctx context.Context, id uuid.UUID, callerID string, callerIsAdmin bool) (*models.PromptTemplate, error) {
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}

	if !template.VisibleTo(callerID, callerIsAdmin) {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// List returns the templates visible to the caller, newest first.
// Admins see every template.
func (s *Store) List(ctx context.Context, callerID string, callerIsAdmin bool) ([]*models.PromptTemplate, error) {
	var (
		listed []*models.PromptTemplate
		err    error
	)
	if callerIsAdmin {
		listed, err = s.repo.ListAll(ctx)
	} else {
		listed, err = s.repo.ListVisible(ctx, callerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return listed, nil
}

// Delete removes a template. Only the owner or an admin may delete;
// public visibility does not grant deletion.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, callerID string, callerIsAdmin bool) error {
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrTemplateNotFound
	}
	if template.CreatedBy != callerID && !callerIsAdmin {
		return ErrTemplateNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	s.logger.Info("template deleted",
		zap.String("template_id", id.String()),
		zap.String("deleted_by", callerID))
	return nil
}
