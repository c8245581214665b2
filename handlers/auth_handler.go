package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// LoginRequest is the credentials payload for POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler verifies credentials and issues a session token
func LoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Username == "" || req.Password == "" {
			_ = utils.WriteBadRequest(w, "username and password are required", nil)
			return
		}

		user, err := deps.Users.GetByID(r.Context(), req.Username)
		if err != nil || !user.CheckPassword(req.Password) {
			deps.Logger.Warn("login failed", zap.String("username", req.Username))
			_ = utils.WriteUnauthorized(w, "Invalid username or password")
			return
		}

		token, err := deps.Tokens.Issue(user)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		deps.Logger.Info("login succeeded",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)))

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user}, deps.Logger)
	}
}

// RegisterRequest is the payload for the admin-only user creation
type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Department     string `json:"department"`
	PreferredModel string `json:"preferred_model"`
}

// RegisterHandler creates a user account. Admin only.
func RegisterHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Username == "" || req.Password == "" {
			_ = utils.WriteBadRequest(w, "username and password are required", nil)
			return
		}

		role := models.UserRole(req.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			role = models.RoleUser
		}

		user := &models.User{
			ID:             req.Username,
			Role:           role,
			Department:     req.Department,
			PreferredModel: req.PreferredModel,
		}
		if err := user.SetPassword(req.Password); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := deps.Users.Create(r.Context(), user); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		deps.Logger.Info("user created",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)))

		writeJSON(w, http.StatusCreated, user, deps.Logger)
	}
}
