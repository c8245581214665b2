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

// HistoryRepository implements repositories.HistoryRepository
type HistoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB, logger *zap.Logger) repositories.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

const historyColumns = `id, timestamp, user_id, prompt, response, success, provider_used, error_message, metadata`

// Insert appends one record; records are never updated in place
func (r *HistoryRepository) Insert(ctx context.Context, record *models.PromptRecord) error {
	query := `
		INSERT INTO prompt_history (
			id, timestamp, user_id, prompt, response,
			success, provider_used, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Timestamp,
		record.UserID,
		record.Prompt,
		record.Response,
		record.Success,
		record.ProviderUsed,
		record.ErrorMessage,
		nullableJSON(record.Metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prompt record: %w", err)
	}

	r.logger.Debug("prompt record inserted",
		zap.String("id", record.ID.String()),
		zap.Bool("success", record.Success))
	return nil
}

// GetByID retrieves a record by ID
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM prompt_history WHERE id = $1`

	rec := &models.PromptRecord{}
	var metadata sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Timestamp,
		&rec.UserID,
		&rec.Prompt,
		&rec.Response,
		&rec.Success,
		&rec.ProviderUsed,
		&rec.ErrorMessage,
		&metadata,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("prompt record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get prompt record: %w", err)
	}
	if metadata.Valid {
		rec.Metadata = []byte(metadata.String)
	}

	return rec, nil
}

// ListByUser retrieves records for one user, newest first
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.PromptRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM prompt_history
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryRecords(ctx, query, userID, limit, offset)
}

// ListAll retrieves records for all users, newest first
func (r *HistoryRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.PromptRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM prompt_history
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryRecords(ctx, query, limit, offset)
}

// Count returns the number of stored records
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count prompt records: %w", err)
	}
	return count, nil
}

func (r *HistoryRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.PromptRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt records: %w", err)
	}
	defer rows.Close()

	var records []*models.PromptRecord
	for rows.Next() {
		rec := &models.PromptRecord{}
		var metadata sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.UserID,
			&rec.Prompt,
			&rec.Response,
			&rec.Success,
			&rec.ProviderUsed,
			&rec.ErrorMessage,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prompt record: %w", err)
		}
		if metadata.Valid {
			rec.Metadata = []byte(metadata.String)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompt records: %w", err)
	}

	return records, nil
}

// nullableJSON maps empty metadata to NULL instead of an empty string
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
