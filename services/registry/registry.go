// Package registry manages the provider catalog: the set of configured
// LLM endpoints, their priorities, and the default selection.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
)

var (
	// ErrProviderNotFound is returned when no enabled provider has the
	// requested id
	ErrProviderNotFound = errors.New("provider not found")
)

// ValidationError reports why a provider record was rejected
type ValidationError struct {
	Provider string
	Fields   []string
	Err      error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid provider %s: fields %v", e.Provider, e.Fields)
	}
	return fmt.Sprintf("invalid provider %s: %v", e.Provider, e.Err)
}

// Unwrap implements error unwrapping
func (e *ValidationError) Unwrap() error { return e.Err }

// Registry holds the provider catalog. Reads are served from an
// in-memory snapshot; writes validate, persist, and then swap the
// snapshot under the write lock so readers never observe a partial
// update.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]models.Provider

	repo     repositories.ProviderRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRegistry creates a registry backed by the given repository
func NewRegistry(repo repositories.ProviderRepository, logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]models.Provider),
		repo:      repo,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Load populates the catalog from storage. An empty store is seeded
// with the default catalog and persisted.
func (r *Registry) Load(ctx context.Context) error {
	stored, err := r.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load provider catalog: %w", err)
	}

	if len(stored) == 0 {
		seed := DefaultCatalog()
		stored = make([]*models.Provider, len(seed))
		for i := range seed {
			stored[i] = &seed[i]
		}
		if err := r.repo.SaveAll(ctx, stored); err != nil {
			return fmt.Errorf("seed provider catalog: %w", err)
		}
		r.logger.Info("seeded default provider catalog", zap.Int("providers", len(stored)))
	}

	snapshot := make(map[string]models.Provider, len(stored))
	for _, p := range stored {
		if err := r.validateProvider(p); err != nil {
			r.logger.Warn("skipping invalid stored provider",
				zap.String("provider_id", p.ID),
				zap.Error(err))
			continue
		}
		snapshot[p.ID] = *p
	}

	r.mu.Lock()
	r.providers = snapshot
	r.mu.Unlock()

	r.logger.Info("provider catalog loaded", zap.Int("providers", len(snapshot)))
	return nil
}

// Get returns the enabled provider with the given id. Disabled
// providers are invisible here; admin surfaces use All.
func (r *Registry) Get(id string) (*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok || !p.Enabled {
		return nil, ErrProviderNotFound
	}

	clone := p
	return &clone, nil
}

// EnabledSorted returns every enabled provider ordered by ascending
// priority, ties broken by id. The slice is a copy.
func (r *Registry) EnabledSorted() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}

	sort.Slice(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].ID < enabled[j].ID
	})

	return enabled
}

// Default returns the enabled provider flagged as default, if any
func (r *Registry) Default() (*models.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.IsDefault && p.Enabled {
			clone := p
			return &clone, true
		}
	}
	return nil, false
}

// All returns the full catalog including disabled providers, ordered
// by ascending priority then id
func (r *Registry) All() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Priority != all[j].Priority {
			return all[i].Priority < all[j].Priority
		}
		return all[i].ID < all[j].ID
	})

	return all
}

// Upsert validates the record, persists the updated catalog, and
// swaps it into memory. Flagging a provider as default clears the
// flag from every other provider in the same write, so at most one
// default exists at any observable moment.
func (r *Registry) Upsert(ctx context.Context, provider models.Provider) error {
	if err := r.validateProvider(&provider); err != nil {
		return err
	}
	provider.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]models.Provider, len(r.providers)+1)
	for id, p := range r.providers {
		if provider.IsDefault && id != provider.ID {
			p.IsDefault = false
		}
		next[id] = p
	}
	next[provider.ID] = provider

	if err := r.persistLocked(ctx, next); err != nil {
		return err
	}

	r.providers = next
	r.logger.Info("provider upserted",
		zap.String("provider_id", provider.ID),
		zap.Bool("enabled", provider.Enabled),
		zap.Bool("is_default", provider.IsDefault))
	return nil
}

// Remove deletes a provider from the catalog
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return ErrProviderNotFound
	}

	next := make(map[string]models.Provider, len(r.providers))
	for pid, p := range r.providers {
		if pid != id {
			next[pid] = p
		}
	}

	if err := r.persistLocked(ctx, next); err != nil {
		return err
	}

	r.providers = next
	r.logger.Info("provider removed", zap.String("provider_id", id))
	return nil
}

// ReplaceAll validates and installs a whole catalog in one write.
// Used by the admin settings surface, which submits the full form.
func (r *Registry) ReplaceAll(ctx context.Context, catalog []models.Provider) error {
	next := make(map[string]models.Provider, len(catalog))
	defaultSeen := false
	now := time.Now().UTC()

	for i := range catalog {
		p := catalog[i]
		if err := r.validateProvider(&p); err != nil {
			return err
		}
		if _, dup := next[p.ID]; dup {
			return &ValidationError{Provider: p.ID, Err: errors.New("duplicate provider id")}
		}
		if p.IsDefault {
			if defaultSeen {
				return &ValidationError{Provider: p.ID, Err: errors.New("multiple default providers")}
			}
			defaultSeen = true
		}
		p.UpdatedAt = now
		next[p.ID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persistLocked(ctx, next); err != nil {
		return err
	}

	r.providers = next
	r.logger.Info("provider catalog replaced", zap.Int("providers", len(next)))
	return nil
}

func (r *Registry) persistLocked(ctx context.Context, snapshot map[string]models.Provider) error {
	catalog := make([]*models.Provider, 0, len(snapshot))
	for _, p := range snapshot {
		clone := p
		catalog = append(catalog, &clone)
	}
	sort.Slice(catalog, func(i, j int) bool {
		if catalog[i].Priority != catalog[j].Priority {
			return catalog[i].Priority < catalog[j].Priority
		}
		return catalog[i].ID < catalog[j].ID
	})

	if err := r.repo.SaveAll(ctx, catalog); err != nil {
		return fmt.Errorf("persist provider catalog: %w", err)
	}
	return nil
}

func (r *Registry) validateProvider(p *models.Provider) error {
	if !p.Family.Valid() {
		return &ValidationError{
			Provider: p.ID,
			Err:      fmt.Errorf("unknown provider family %q", p.Family),
		}
	}

	if err := r.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return &ValidationError{Provider: p.ID, Fields: fields, Err: err}
		}
		return &ValidationError{Provider: p.ID, Err: err}
	}
	return nil
}
