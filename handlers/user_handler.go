package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// CurrentUserHandler returns the authenticated user's own record.
func CurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := callerClaims(w, r)
		if !ok {
			return
		}

		user, err := deps.Users.GetByID(r.Context(), userID)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, user, deps.Logger)
	}
}

// UpdatePreferredModelRequest is the payload for PUT /users/me/preferred-model.
// An empty provider_id clears the preference.
type UpdatePreferredModelRequest struct {
	ProviderID string `json:"provider_id"`
}

// UpdatePreferredModelHandler stores the provider the user wants the
// selection policy to try first.
func UpdatePreferredModelHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := callerClaims(w, r)
		if !ok {
			return
		}

		var req UpdatePreferredModelRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.ProviderID != "" && findProvider(deps, req.ProviderID) == nil {
			_ = utils.WriteBadRequest(w, "unknown provider id", map[string]interface{}{
				"provider_id": req.ProviderID,
			})
			return
		}

		if err := deps.Users.UpdatePreferredModel(r.Context(), userID, req.ProviderID); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		deps.Logger.Info("preferred model updated",
			zap.String("user_id", userID),
			zap.String("provider_id", req.ProviderID))

		writeJSON(w, http.StatusOK, map[string]string{
			"preferred_model": req.ProviderID,
		}, deps.Logger)
	}
}
