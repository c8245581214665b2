package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// ListTemplatesHandler returns the templates visible to the caller:
// their own plus public ones, or everything for admins.
func ListTemplatesHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		listed, err := deps.Templates.List(r.Context(), userID, isAdmin)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"templates": listed,
			"count":     len(listed),
		}, deps.Logger)
	}
}

// SaveTemplateRequest is the payload for POST /api/v1/templates
type SaveTemplateRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"is_public"`
}

// SaveTemplateHandler stores a new prompt template owned by the caller
func SaveTemplateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := callerClaims(w, r)
		if !ok {
			return
		}

		var req SaveTemplateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		template, err := deps.Templates.Save(r.Context(), req.Title, req.Content, userID, req.IsPublic)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusCreated, template, deps.Logger)
	}
}

// GetTemplateHandler returns one template when the caller may see it
func GetTemplateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid template id", nil)
			return
		}

		template, err := deps.Templates.Get(r.Context(), id, userID, isAdmin)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, template, deps.Logger)
	}
}

// DeleteTemplateHandler removes a template; owners and admins only
func DeleteTemplateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid template id", nil)
			return
		}

		if err := deps.Templates.Delete(r.Context(), id, userID, isAdmin); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		utils.WriteNoContent(w)
	}
}
