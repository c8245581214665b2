// Package selection chooses the initial provider for a dispatch.
package selection

import (
	"errors"

	"github.com/prefeitura-digital/prompt-router/models"
)

// ErrNoProviderAvailable is returned when no selection rule yields an
// enabled provider. The message doubles as the user-facing cause.
var ErrNoProviderAvailable = errors.New("no model is enabled; configure at least one provider")

// Catalog is the registry view the policy needs
type Catalog interface {
	// Get returns the enabled provider with the given id
	Get(id string) (*models.Provider, error)

	// EnabledSorted returns enabled providers by ascending priority
	EnabledSorted() []models.Provider

	// Default returns the enabled default provider, if any
	Default() (*models.Provider, bool)
}

// Request carries the caller's selection inputs
type Request struct {
	// ModelID is the explicit provider choice, or empty
	ModelID string

	// PreferredModel is the user's stored preference, or empty
	PreferredModel string
}

// Policy resolves the initial provider id. It is pure with respect to
// the request and the catalog snapshot.
type Policy struct {
	catalog Catalog
}

// NewPolicy creates a selection policy over the given catalog
func NewPolicy(catalog Catalog) *Policy {
	return &Policy{catalog: catalog}
}

// Select applies the selection rules in order; the first rule that
// yields an enabled provider wins:
//  1. the caller's explicit model id
//  2. the user's preferred model
//  3. the catalog default
//  4. the enabled provider with the lowest priority
func (p *Policy) Select(req Request) (*models.Provider, error) {
	if req.ModelID != "" {
		if provider, err := p.catalog.Get(req.ModelID); err == nil {
			return provider, nil
		}
	}

	if req.PreferredModel != "" {
		if provider, err := p.catalog.Get(req.PreferredModel); err == nil {
			return provider, nil
		}
	}

	if provider, ok := p.catalog.Default(); ok {
		return provider, nil
	}

	enabled := p.catalog.EnabledSorted()
	if len(enabled) > 0 {
		provider := enabled[0]
		return &provider, nil
	}

	return nil, ErrNoProviderAvailable
}
