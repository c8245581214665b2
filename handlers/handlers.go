// Package handlers contains the thin HTTP layer over the generation
// core. Handlers decode, delegate, and encode; domain decisions live
// in the services.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/prefeitura-digital/prompt-router/middleware"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// decodeJSON parses the request body into dst, replying 400 on
// malformed input. Returns false when the response is already written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return false
	}
	return true
}

// callerClaims fetches the session claims placed by RequireAuth,
// replying 401 when absent
func callerClaims(w http.ResponseWriter, r *http.Request) (userID string, isAdmin bool, ok bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return "", false, false
	}
	return claims.UserID, claims.IsAdmin(), true
}
