package postgres

import (
	"context"
	"fmt"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
	"go.uber.org/zap"
)

// ProviderRepository implements repositories.ProviderRepository
type ProviderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB, logger *zap.Logger) repositories.ProviderRepository {
	return &ProviderRepository{
		db:     db,
		logger: logger,
	}
}

// LoadAll returns every stored provider record
func (r *ProviderRepository) LoadAll(ctx context.Context) ([]*models.Provider, error) {
	query := `
		SELECT id, display_name, family, endpoint, credential,
		       max_tokens, temperature, priority, enabled, is_default, updated_at
		FROM providers
		ORDER BY priority ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		p := &models.Provider{}
		if err := rows.Scan(
			&p.ID,
			&p.DisplayName,
			&p.Family,
			&p.Endpoint,
			&p.Credential,
			&p.MaxTokens,
			&p.Temperature,
			&p.Priority,
			&p.Enabled,
			&p.IsDefault,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}

// SaveAll replaces the stored set with the given records atomically.
// Write-all semantics keep the default-flag invariant consistent with
// what the registry holds in memory.
func (r *ProviderRepository) SaveAll(ctx context.Context, providers []*models.Provider) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM providers`); err != nil {
		return fmt.Errorf("failed to clear providers: %w", err)
	}

	insert := `
		INSERT INTO providers (
			id, display_name, family, endpoint, credential,
			max_tokens, temperature, priority, enabled, is_default, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, p := range providers {
		if _, err := tx.ExecContext(ctx, insert,
			p.ID,
			p.DisplayName,
			p.Family,
			p.Endpoint,
			p.Credential,
			p.MaxTokens,
			p.Temperature,
			p.Priority,
			p.Enabled,
			p.IsDefault,
			p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert provider %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit providers: %w", err)
	}

	r.logger.Debug("provider catalog saved", zap.Int("count", len(providers)))
	return nil
}
