package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
	"go.uber.org/zap"
)

// ErrUserNotFound is returned when a user does not exist
var ErrUserNotFound = fmt.Errorf("user not found")

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, password_hash, role, department, preferred_model, created_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.PasswordHash,
		&user.Role,
		&user.Department,
		&user.PreferredModel,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, password_hash, role, department, preferred_model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.PasswordHash,
		user.Role,
		user.Department,
		user.PreferredModel,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID))
	return nil
}

// UpdatePreferredModel stores the user's preferred provider id
func (r *UserRepository) UpdatePreferredModel(ctx context.Context, userID, providerID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET preferred_model = $1 WHERE id = $2`,
		providerID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferred model: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
