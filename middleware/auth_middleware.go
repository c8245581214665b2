package middleware

import (
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/auth"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// authTokenCookieName is the cookie fallback for session tokens; the
// Authorization header takes precedence
const authTokenCookieName = "auth_token"

// AuthMiddleware guards routes behind session token validation
type AuthMiddleware struct {
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewAuthMiddleware creates an AuthMiddleware
func NewAuthMiddleware(tokens *auth.TokenService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// RequireAuth rejects requests without a valid session token and
// stores the claims in the request context for downstream handlers
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimiddleware.GetReqID(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", claims.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin sessions. Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		if !claims.IsAdmin() {
			m.logger.Warn("admin access denied",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("user_id", claims.UserID))
			_ = utils.WriteForbidden(w, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the session token from the Authorization header
// or the auth cookie
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	if cookie, err := r.Cookie(authTokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
