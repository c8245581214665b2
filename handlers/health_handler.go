package handlers

import (
	"net/http"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// HealthCheck reports process liveness
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports whether the service can take traffic: the
// database answers and the catalog holds at least one provider
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.HealthCheck(r.Context()); err != nil {
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ready",
			"providers": len(deps.Registry.All()),
		})
	}
}
