package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(2 * time.Minute))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// Session auth
	r.Post("/auth/login", handlers.LoginHandler(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Generation and model discovery
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/generate", handlers.GenerateHandler(deps))
			r.Get("/models", handlers.ListModelsHandler(deps))

			r.Route("/history", func(r chi.Router) {
				r.Get("/", handlers.ListHistoryHandler(deps))
				r.Get("/{id}", handlers.GetHistoryRecordHandler(deps))
				r.Get("/{id}/export", handlers.ExportHistoryRecordHandler(deps))
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", handlers.ListTemplatesHandler(deps))
				r.Post("/", handlers.SaveTemplateHandler(deps))
				r.Get("/{id}", handlers.GetTemplateHandler(deps))
				r.Delete("/{id}", handlers.DeleteTemplateHandler(deps))
			})

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", handlers.CurrentUserHandler(deps))
				r.Put("/preferred-model", handlers.UpdatePreferredModelHandler(deps))
			})
		})

		// Catalog and account administration
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireAdmin)

			r.Route("/providers", func(r chi.Router) {
				r.Get("/", handlers.ListProvidersHandler(deps))
				r.Put("/", handlers.ReplaceCatalogHandler(deps))
				r.Put("/{id}", handlers.UpsertProviderHandler(deps))
				r.Delete("/{id}", handlers.DeleteProviderHandler(deps))
			})

			r.Post("/users", handlers.RegisterHandler(deps))
		})
	})

	return r
}
