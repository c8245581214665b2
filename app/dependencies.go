// Package app wires the application dependencies together.
package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/auth"
	"github.com/prefeitura-digital/prompt-router/config"
	"github.com/prefeitura-digital/prompt-router/middleware"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
	"github.com/prefeitura-digital/prompt-router/repositories/postgres"
	"github.com/prefeitura-digital/prompt-router/services/dispatch"
	"github.com/prefeitura-digital/prompt-router/services/history"
	"github.com/prefeitura-digital/prompt-router/services/orchestrator"
	"github.com/prefeitura-digital/prompt-router/services/providers"
	"github.com/prefeitura-digital/prompt-router/services/providers/anthropic"
	"github.com/prefeitura-digital/prompt-router/services/providers/google"
	"github.com/prefeitura-digital/prompt-router/services/providers/openaicompat"
	"github.com/prefeitura-digital/prompt-router/services/registry"
	"github.com/prefeitura-digital/prompt-router/services/selection"
	"github.com/prefeitura-digital/prompt-router/services/templates"
)

// Dependencies holds all application dependencies. This is the
// central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users   repositories.UserRepository
	History repositories.HistoryRepository

	templateRepo repositories.TemplateRepository

	// Core services
	Registry     *registry.Registry
	Policy       *selection.Policy
	Dispatcher   *dispatch.Dispatcher
	Recorder     *history.Recorder
	Templates    *templates.Store
	Orchestrator *orchestrator.Service

	// Auth
	Tokens         *auth.TokenService
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initCore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize core services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, repositories
// and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Users = repos.Users
	d.History = repos.History
	d.templateRepo = repos.Templates

	d.Registry = registry.NewRegistry(repos.Providers, d.Logger)
	d.Logger.Info("repositories initialized")
	return nil
}

// initCore loads the provider catalog and assembles the generation
// pipeline
func (d *Dependencies) initCore(ctx context.Context, cfg *config.Config) error {
	if cfg.Providers.CatalogFile != "" {
		if err := d.seedFromFile(ctx, cfg.Providers.CatalogFile); err != nil {
			return err
		}
	}

	if err := d.Registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load provider catalog: %w", err)
	}

	resolver := providers.NewResolver(d.buildAdapters(cfg)...)

	d.Dispatcher = dispatch.NewDispatcher(d.Registry, resolver, dispatch.Options{
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		BaseDelay:   cfg.Dispatch.BaseDelay,
	}, d.Logger)

	d.Recorder = history.NewRecorder(d.History, d.Logger)
	d.Templates = templates.NewStore(d.templateRepo, d.Logger)
	d.Policy = selection.NewPolicy(d.Registry)
	d.Orchestrator = orchestrator.NewService(d.Policy, d.Dispatcher, d.Recorder, d.Users, d.Logger)

	d.Logger.Info("generation pipeline initialized",
		zap.Int("max_attempts", cfg.Dispatch.MaxAttempts),
		zap.Duration("base_delay", cfg.Dispatch.BaseDelay))
	return nil
}

// buildAdapters constructs one adapter per provider family
func (d *Dependencies) buildAdapters(cfg *config.Config) []providers.Adapter {
	timeout := cfg.Providers.RequestTimeout
	baseURL := func(family models.Family) string {
		return cfg.Providers.BaseURLs[string(family)]
	}

	adapters := []providers.Adapter{
		google.NewAdapter(google.Config{
			BaseURL:       baseURL(models.FamilyGoogle),
			DefaultAPIKey: cfg.Providers.DefaultGoogleAPIKey,
			Timeout:       timeout,
		}),
		anthropic.NewAdapter(anthropic.Config{
			BaseURL: baseURL(models.FamilyAnthropic),
			Timeout: timeout,
		}),
	}

	for _, family := range []models.Family{
		models.FamilyOpenAI,
		models.FamilyDeepSeek,
		models.FamilyBlackbox,
		models.FamilyPerplexity,
		models.FamilyXAI,
	} {
		adapters = append(adapters, openaicompat.NewAdapter(family, openaicompat.Config{
			BaseURL: baseURL(family),
			Timeout: timeout,
		}))
	}
	return adapters
}

// seedFromFile installs a catalog file when the store is still empty
func (d *Dependencies) seedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	catalog, err := registry.ParseCatalog(data)
	if err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}

	stored, err := d.RepoFactory.NewRepositories().Providers.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("check stored catalog: %w", err)
	}
	if len(stored) > 0 {
		d.Logger.Info("catalog already stored, ignoring catalog file",
			zap.String("path", path))
		return nil
	}

	records := make([]*models.Provider, len(catalog))
	for i := range catalog {
		records[i] = &catalog[i]
	}
	if err := d.RepoFactory.NewRepositories().Providers.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("store catalog file: %w", err)
	}

	d.Logger.Info("seeded catalog from file",
		zap.String("path", path),
		zap.Int("providers", len(records)))
	return nil
}

// initAuth wires the session token service and auth middleware
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT_SECRET not set, protected routes will reject all requests")
	}
	d.Tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
