package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// providerView hides the stored credential from admin listings; only
// its presence is reported
type providerView struct {
	models.Provider
	Credential    string `json:"credential,omitempty"`
	HasCredential bool   `json:"has_credential"`
}

func newProviderView(p models.Provider) providerView {
	view := providerView{Provider: p, HasCredential: p.HasCredential()}
	view.Provider.Credential = ""
	return view
}

// ListProvidersHandler returns the full catalog, disabled providers
// included. Admin only.
func ListProvidersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := deps.Registry.All()
		views := make([]providerView, 0, len(all))
		for _, p := range all {
			views = append(views, newProviderView(p))
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"providers": views}, deps.Logger)
	}
}

// UpsertProviderRequest is the payload for PUT /providers/{id}
type UpsertProviderRequest struct {
	DisplayName string  `json:"display_name"`
	Family      string  `json:"family"`
	Endpoint    string  `json:"endpoint"`
	Credential  *string `json:"credential,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Priority    int     `json:"priority"`
	Enabled     bool    `json:"enabled"`
	IsDefault   bool    `json:"is_default"`
}

// UpsertProviderHandler creates or updates one catalog entry. An
// omitted credential keeps the stored one; flagging is_default clears
// the flag elsewhere. Admin only.
func UpsertProviderHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			_ = utils.WriteBadRequest(w, "provider id is required", nil)
			return
		}

		var req UpsertProviderRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		provider := models.Provider{
			ID:          id,
			DisplayName: req.DisplayName,
			Family:      models.Family(req.Family),
			Endpoint:    req.Endpoint,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Priority:    req.Priority,
			Enabled:     req.Enabled,
			IsDefault:   req.IsDefault,
		}

		if req.Credential != nil {
			provider.Credential = *req.Credential
		} else if existing := findProvider(deps, id); existing != nil {
			provider.Credential = existing.Credential
		}

		if err := deps.Registry.Upsert(r.Context(), provider); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, newProviderView(provider), deps.Logger)
	}
}

// ReplaceCatalogRequest is the payload for PUT /providers
type ReplaceCatalogRequest struct {
	Providers []models.Provider `json:"providers"`
}

// ReplaceCatalogHandler swaps the whole catalog atomically. Admin only.
func ReplaceCatalogHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReplaceCatalogRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Providers) == 0 {
			_ = utils.WriteBadRequest(w, "catalog must contain at least one provider", nil)
			return
		}

		if err := deps.Registry.ReplaceAll(r.Context(), req.Providers); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		views := make([]providerView, 0, len(req.Providers))
		for _, p := range req.Providers {
			views = append(views, newProviderView(p))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"providers": views}, deps.Logger)
	}
}

// DeleteProviderHandler removes a catalog entry. Admin only.
func DeleteProviderHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.Registry.Remove(r.Context(), id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		utils.WriteNoContent(w)
	}
}

// findProvider looks an id up in the full catalog, disabled included
func findProvider(deps *app.Dependencies, id string) *models.Provider {
	for _, p := range deps.Registry.All() {
		if p.ID == id {
			return &p
		}
	}
	return nil
}
