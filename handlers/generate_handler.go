package handlers

import (
	"net/http"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/services/orchestrator"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// GenerateRequest is the payload for POST /api/v1/generate
type GenerateRequest struct {
	Prompt   string            `json:"prompt"`
	ModelID  string            `json:"model_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GenerateHandler runs one prompt through the generation pipeline.
// A dispatch failure still returns 200: the outcome flag and error
// field in the body carry the result, and a history record exists
// either way.
func GenerateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := callerClaims(w, r)
		if !ok {
			return
		}

		var req GenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Prompt == "" {
			_ = utils.WriteBadRequest(w, "prompt is required", nil)
			return
		}

		result := deps.Orchestrator.Generate(r.Context(), orchestrator.Request{
			Prompt:  req.Prompt,
			UserID:  userID,
			ModelID: req.ModelID,
			Meta:    req.Metadata,
		})

		writeJSON(w, http.StatusOK, result, deps.Logger)
	}
}

// ListModelsHandler returns the enabled providers for the model
// picker. Credentials never leave the server.
func ListModelsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := callerClaims(w, r); !ok {
			return
		}

		type modelView struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			IsDefault   bool   `json:"is_default"`
		}

		enabled := deps.Registry.EnabledSorted()
		views := make([]modelView, 0, len(enabled))
		for _, p := range enabled {
			views = append(views, modelView{
				ID:          p.ID,
				DisplayName: p.DisplayName,
				IsDefault:   p.IsDefault,
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"models": views}, deps.Logger)
	}
}
