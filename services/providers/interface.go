package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefeitura-digital/prompt-router/models"
)

// Adapter encapsulates one LLM family's wire protocol. Adapters are
// stateless and reentrant; every call carries the full provider
// record.
type Adapter interface {
	// Family returns the family this adapter serves
	Family() models.Family

	// Generate submits the prompt and returns the generated text.
	// Failures are one of *QuotaError, *TransportError or
	// *PermanentError; anything else is classified as transport.
	Generate(ctx context.Context, prompt string, provider *models.Provider) (string, error)
}

// QuotaError reports vendor-side rate or quota depletion. RetryAfter
// is zero when the vendor did not suggest a delay.
type QuotaError struct {
	Provider   string
	RetryAfter time.Duration
	Cause      error
}

// Error implements the error interface
func (e *QuotaError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s quota exhausted, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s quota exhausted", e.Provider)
}

// Unwrap implements error unwrapping
func (e *QuotaError) Unwrap() error { return e.Cause }

// TransportError reports a non-2xx response or a network failure.
// Both are treated as transient.
type TransportError struct {
	Provider string
	Status   int
	Body     string
	Cause    error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s transport error: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("provider %s transport error: %v", e.Provider, e.Cause)
}

// Unwrap implements error unwrapping
func (e *TransportError) Unwrap() error { return e.Cause }

// PermanentError reports a request that is malformed for this
// provider, such as a missing credential on a non-Google family.
// Retrying the same provider cannot succeed.
type PermanentError struct {
	Provider string
	Reason   string
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}

// NewMissingCredentialError builds the permanent error for families
// that require a configured credential.
func NewMissingCredentialError(provider *models.Provider) *PermanentError {
	return &PermanentError{
		Provider: provider.ID,
		Reason:   fmt.Sprintf("no API key configured for %s", provider.DisplayName),
	}
}

// Classify normalizes an adapter failure into the declared taxonomy.
// Context expiry and unknown errors become transport errors.
func Classify(providerID string, err error) error {
	var quota *QuotaError
	var transport *TransportError
	var permanent *PermanentError

	switch {
	case errors.As(err, &quota), errors.As(err, &transport), errors.As(err, &permanent):
		return err
	default:
		return &TransportError{Provider: providerID, Cause: err}
	}
}

// IsPermanent reports whether the error rules out retrying the same
// provider.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}

// RetryAfter extracts a vendor-suggested delay, or zero.
func RetryAfter(err error) time.Duration {
	var quota *QuotaError
	if errors.As(err, &quota) {
		return quota.RetryAfter
	}
	return 0
}

// Resolver maps a provider family to its adapter. The registry
// guarantees every stored family has an arm here; an unknown family
// at dispatch time is a configuration bug surfaced as permanent.
type Resolver struct {
	adapters map[models.Family]Adapter
}

// NewResolver builds a resolver from the given adapters
func NewResolver(adapters ...Adapter) *Resolver {
	m := make(map[models.Family]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Family()] = a
	}
	return &Resolver{adapters: m}
}

// ForFamily returns the adapter serving the family
func (r *Resolver) ForFamily(family models.Family) (Adapter, error) {
	adapter, ok := r.adapters[family]
	if !ok {
		return nil, &PermanentError{
			Provider: string(family),
			Reason:   fmt.Sprintf("unknown provider family %q", family),
		}
	}
	return adapter, nil
}

// Families returns every family with a registered adapter
func (r *Resolver) Families() []models.Family {
	families := make([]models.Family, 0, len(r.adapters))
	for f := range r.adapters {
		families = append(families, f)
	}
	return families
}
