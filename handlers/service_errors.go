package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/repositories/postgres"
	"github.com/prefeitura-digital/prompt-router/services/history"
	"github.com/prefeitura-digital/prompt-router/services/registry"
	"github.com/prefeitura-digital/prompt-router/services/templates"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Unmapped
// errors become a generic 500 with the cause logged, never exposed.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var validationErr *registry.ValidationError

	switch {
	case errors.As(err, &validationErr):
		details := map[string]interface{}{"provider": validationErr.Provider}
		if len(validationErr.Fields) > 0 {
			details["fields"] = validationErr.Fields
		}
		_ = utils.WriteBadRequest(w, err.Error(), details)

	case errors.Is(err, registry.ErrProviderNotFound):
		_ = utils.WriteNotFound(w, "provider not found")

	case errors.Is(err, history.ErrRecordNotFound):
		_ = utils.WriteNotFound(w, "prompt record not found")

	case errors.Is(err, templates.ErrTemplateNotFound):
		_ = utils.WriteNotFound(w, "template not found")

	case errors.Is(err, templates.ErrInvalidTemplate):
		_ = utils.WriteBadRequest(w, err.Error(), nil)

	case errors.Is(err, postgres.ErrUserNotFound):
		_ = utils.WriteNotFound(w, "user not found")

	default:
		logger.Error("internal server error", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
	}
}

// writeJSON is the success-path sibling of HandleServiceError
func writeJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	if err := utils.WriteJSON(w, status, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
