package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/prefeitura-digital/prompt-router/models"
)

// ProviderRepository persists provider records for the registry.
// The registry assumes write-then-read consistency from SaveAll.
type ProviderRepository interface {
	// LoadAll returns every stored provider record
	LoadAll(ctx context.Context) ([]*models.Provider, error)

	// SaveAll replaces the stored set with the given records atomically
	SaveAll(ctx context.Context, providers []*models.Provider) error
}

// HistoryRepository is the append-only sink for prompt records.
// Records are never updated in place.
type HistoryRepository interface {
	// Insert appends one record; returns once it is durably written
	Insert(ctx context.Context, record *models.PromptRecord) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptRecord, error)

	// ListByUser retrieves records for one user, newest first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.PromptRecord, error)

	// ListAll retrieves records for all users, newest first (admin view)
	ListAll(ctx context.Context, limit, offset int) ([]*models.PromptRecord, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
}

// TemplateRepository persists saved prompt templates
type TemplateRepository interface {
	// Insert stores one template
	Insert(ctx context.Context, template *models.PromptTemplate) error

	// GetByID retrieves a template by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)

	// ListVisible retrieves the user's own templates plus public
	// ones, newest first
	ListVisible(ctx context.Context, userID string) ([]*models.PromptTemplate, error)

	// ListAll retrieves every template, newest first (admin view)
	ListAll(ctx context.Context) ([]*models.PromptTemplate, error)

	// Delete removes a template
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository handles carrier user records
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// UpdatePreferredModel stores the user's preferred provider id
	UpdatePreferredModel(ctx context.Context, userID, providerID string) error
}

// Repositories bundles all repository instances
type Repositories struct {
	Providers ProviderRepository
	History   HistoryRepository
	Templates TemplateRepository
	Users     UserRepository
}
