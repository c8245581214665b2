// Package dispatch drives the attempt sequence for one prompt:
// fail-over across providers by priority, then bounded retry sweeps
// separated by a backoff delay.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/services/providers"
)

const (
	// DefaultMaxAttempts bounds the number of full sweeps over the
	// enabled provider set
	DefaultMaxAttempts = 2

	// DefaultBaseDelay separates consecutive sweeps
	DefaultBaseDelay = 5 * time.Second
)

// ErrCancelled is returned when the caller's context expires during
// the inter-sweep backoff
var ErrCancelled = errors.New("cancelled")

// Catalog is the registry view the dispatcher needs
type Catalog interface {
	// Get returns the enabled provider with the given id
	Get(id string) (*models.Provider, error)

	// EnabledSorted returns enabled providers by ascending priority
	EnabledSorted() []models.Provider
}

// SleepFunc suspends for d or until ctx expires. Injected in tests to
// observe backoff without waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result carries the outcome of a dispatch. ProviderUsed is the
// provider whose reply was returned on success, or the last attempted
// provider on failure.
type Result struct {
	Text         string
	ProviderUsed string
}

// Options tunes the dispatcher
type Options struct {
	// MaxAttempts is the sweep bound; zero means DefaultMaxAttempts
	MaxAttempts int

	// BaseDelay is the inter-sweep backoff; zero means DefaultBaseDelay
	BaseDelay time.Duration

	// Sleep overrides the backoff implementation; nil means real sleep
	Sleep SleepFunc
}

// Dispatcher executes prompts against the provider catalog
type Dispatcher struct {
	catalog     Catalog
	resolver    *providers.Resolver
	maxAttempts int
	baseDelay   time.Duration
	sleep       SleepFunc
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher over the catalog and adapter set
func NewDispatcher(catalog Catalog, resolver *providers.Resolver, opts Options, logger *zap.Logger) *Dispatcher {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	return &Dispatcher{
		catalog:     catalog,
		resolver:    resolver,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleep,
		logger:      logger,
	}
}

// Dispatch attempts the prompt starting from the initial provider.
// Any failure fails over to the enabled provider with the next higher
// priority at no attempt cost; once a sweep exhausts the set, the
// dispatcher sleeps and re-enters from the initial provider until the
// attempt budget runs out. Result.ProviderUsed is populated on both
// success and failure.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt, initialProviderID string) (Result, error) {
	current := initialProviderID
	attemptsLeft := d.maxAttempts
	var lastErr error

	for {
		text, err := d.attempt(ctx, prompt, current)
		if err == nil {
			d.logger.Info("dispatch succeeded",
				zap.String("provider_id", current),
				zap.Int("attempts_left", attemptsLeft))
			return Result{Text: text, ProviderUsed: current}, nil
		}
		lastErr = err

		d.logger.Warn("provider attempt failed",
			zap.String("provider_id", current),
			zap.Error(err))

		if next, ok := d.nextAfter(current); ok {
			current = next
			continue
		}

		if attemptsLeft > 1 {
			// A permanent failure ending the sweep cannot improve with
			// time, so the backoff is skipped; the re-sweep still
			// happens in case an admin fixed the catalog meanwhile.
			if !providers.IsPermanent(lastErr) {
				delay := d.baseDelay
				if retryAfter := providers.RetryAfter(lastErr); retryAfter > delay {
					delay = retryAfter
				}
				d.logger.Info("all providers exhausted, backing off",
					zap.Duration("delay", delay),
					zap.Int("attempts_left", attemptsLeft-1))
				if err := d.sleep(ctx, delay); err != nil {
					return Result{ProviderUsed: current}, ErrCancelled
				}
			}
			attemptsLeft--
			current = initialProviderID
			continue
		}

		return Result{ProviderUsed: current}, lastErr
	}
}

// attempt runs one adapter call against one provider
func (d *Dispatcher) attempt(ctx context.Context, prompt, providerID string) (string, error) {
	record, err := d.catalog.Get(providerID)
	if err != nil {
		return "", &providers.PermanentError{
			Provider: providerID,
			Reason:   fmt.Sprintf("provider %s is not available", providerID),
		}
	}

	adapter, err := d.resolver.ForFamily(record.Family)
	if err != nil {
		return "", err
	}

	text, err := adapter.Generate(ctx, prompt, record)
	if err != nil {
		return "", providers.Classify(providerID, err)
	}
	return text, nil
}

// nextAfter returns the id of the enabled provider with the lowest
// priority strictly greater than the current provider's. A current id
// that is no longer in the catalog restarts from the head of the
// enabled sequence.
func (d *Dispatcher) nextAfter(currentID string) (string, bool) {
	enabled := d.catalog.EnabledSorted()

	currentPriority, known := 0, false
	for _, p := range enabled {
		if p.ID == currentID {
			currentPriority, known = p.Priority, true
			break
		}
	}

	for _, p := range enabled {
		if !known {
			if p.ID != currentID {
				return p.ID, true
			}
			continue
		}
		if p.Priority > currentPriority {
			return p.ID, true
		}
	}
	return "", false
}
