// Package history persists one immutable record per orchestrated
// call and serves the history views.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
)

// ErrRecordNotFound is returned when the requested record does not
// exist or the caller may not see it
var ErrRecordNotFound = errors.New("prompt record not found")

// Recorder owns the append-only prompt history
type Recorder struct {
	repo   repositories.HistoryRepository
	logger *zap.Logger
}

// NewRecorder creates a recorder over the given repository
func NewRecorder(repo repositories.HistoryRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Append writes one record to the sink. Sink failures are logged and
// swallowed; the user-visible response never depends on the history
// write.
func (r *Recorder) Append(ctx context.Context, record *models.PromptRecord) {
	if err := r.repo.Insert(ctx, record); err != nil {
		r.logger.Error("failed to append prompt record",
			zap.String("record_id", record.ID.String()),
			zap.String("user_id", record.UserID),
			zap.Error(err))
		return
	}

	r.logger.Debug("prompt record appended",
		zap.String("record_id", record.ID.String()),
		zap.Bool("success", record.Success))
}

// Get returns one record, restricted to its owner unless the caller
// is an admin
func (r *Recorder) Get(ctx context.Context, id uuid.UUID, callerID string, callerIsAdmin bool) (*models.PromptRecord, error) {
	record, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	if record.UserID != callerID && !callerIsAdmin {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// List returns the caller's records, newest first. Admins see every
// user's records.
func (r *Recorder) List(ctx context.Context, callerID string, callerIsAdmin bool, limit, offset int) ([]*models.PromptRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var (
		records []*models.PromptRecord
		err     error
	)
	if callerIsAdmin {
		records, err = r.repo.ListAll(ctx, limit, offset)
	} else {
		records, err = r.repo.ListByUser(ctx, callerID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list prompt records: %w", err)
	}
	return records, nil
}

// Count returns the total number of stored records
func (r *Recorder) Count(ctx context.Context) (int, error) {
	count, err := r.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count prompt records: %w", err)
	}
	return count, nil
}
