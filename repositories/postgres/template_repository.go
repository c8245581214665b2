package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
	"go.uber.org/zap"
)

// TemplateRepository implements repositories.TemplateRepository
type TemplateRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *DB, logger *zap.Logger) repositories.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

const templateColumns = `id, title, content, created_by, is_public, created_at`

// Insert stores one template
func (r *TemplateRepository) Insert(ctx context.Context, template *models.PromptTemplate) error {
	query := `
		INSERT INTO prompt_templates (
			id, title, content, created_by, is_public, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		template.ID,
		template.Title,
		template.Content,
		template.CreatedBy,
		template.IsPublic,
		template.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	r.logger.Debug("template inserted",
		zap.String("id", template.ID.String()),
		zap.String("created_by", template.CreatedBy))
	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM prompt_templates WHERE id = $1`

	tpl := &models.PromptTemplate{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.Title,
		&tpl.Content,
		&tpl.CreatedBy,
		&tpl.IsPublic,
		&tpl.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("template not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return tpl, nil
}

// ListVisible retrieves the user's own templates plus public ones,
// newest first
func (r *TemplateRepository) ListVisible(ctx context.Context, userID string) ([]*models.PromptTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE created_by = $1 OR is_public = TRUE
		ORDER BY created_at DESC
	`
	return r.queryTemplates(ctx, query, userID)
}

// ListAll retrieves every template, newest first
func (r *TemplateRepository) ListAll(ctx context.Context) ([]*models.PromptTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM prompt_templates
		ORDER BY created_at DESC
	`
	return r.queryTemplates(ctx, query)
}

// Delete removes a template
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prompt_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("template not found: %s", id)
	}

	r.logger.Debug("template deleted", zap.String("id", id.String()))
	return nil
}

func (r *TemplateRepository) queryTemplates(ctx context.Context, query string, args ...interface{}) ([]*models.PromptTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.PromptTemplate
	for rows.Next() {
		tpl := &models.PromptTemplate{}
		if err := rows.Scan(
			&tpl.ID,
			&tpl.Title,
			&tpl.Content,
			&tpl.CreatedBy,
			&tpl.IsPublic,
			&tpl.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}

	return templates, nil
}
