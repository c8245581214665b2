// Package orchestrator is the entry point of the generation core. It
// ties selection, dispatch, history and rendering into one call.
package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories"
	"github.com/prefeitura-digital/prompt-router/services/dispatch"
	"github.com/prefeitura-digital/prompt-router/services/history"
	"github.com/prefeitura-digital/prompt-router/services/render"
	"github.com/prefeitura-digital/prompt-router/services/selection"
)

// Request is the single input surface of the core
type Request struct {
	Prompt  string            `json:"prompt"`
	UserID  string            `json:"user_id"`
	ModelID string            `json:"model_id,omitempty"`
	Meta    map[string]string `json:"metadata,omitempty"`
}

// Result is returned for every call, failures included
type Result struct {
	Text         string `json:"text"`
	HTML         string `json:"html"`
	Outcome      bool   `json:"outcome"`
	ProviderUsed string `json:"provider_used"`
	RecordID     string `json:"record_id"`
	Error        string `json:"error,omitempty"`
}

// Service orchestrates one generation per call
type Service struct {
	policy     *selection.Policy
	dispatcher *dispatch.Dispatcher
	recorder   *history.Recorder
	users      repositories.UserRepository
	logger     *zap.Logger
}

// NewService creates the orchestrator
func NewService(
	policy *selection.Policy,
	dispatcher *dispatch.Dispatcher,
	recorder *history.Recorder,
	users repositories.UserRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		policy:     policy,
		dispatcher: dispatcher,
		recorder:   recorder,
		users:      users,
		logger:     logger,
	}
}

// Generate runs selection, dispatch, history and rendering for one
// prompt. Every call, successful or not, appends exactly one history
// record before returning.
func (s *Service) Generate(ctx context.Context, req Request) *Result {
	record := models.NewPromptRecord(req.UserID, req.Prompt, req.Meta)

	preferred := s.preferredModel(ctx, req.UserID)
	selected, err := s.policy.Select(selection.Request{
		ModelID:        req.ModelID,
		PreferredModel: preferred,
	})
	if err != nil {
		// nothing to dispatch against; record and return the failure
		return s.fail(ctx, record, req.ModelID, err.Error())
	}

	dispatched, err := s.dispatcher.Dispatch(ctx, req.Prompt, selected.ID)
	if err != nil {
		message := err.Error()
		if errors.Is(err, dispatch.ErrCancelled) {
			message = "cancelled"
		}
		return s.fail(ctx, record, dispatched.ProviderUsed, message)
	}

	record.MarkSucceeded(dispatched.Text, dispatched.ProviderUsed)
	s.recorder.Append(ctx, record)

	s.logger.Info("generation completed",
		zap.String("record_id", record.ID.String()),
		zap.String("user_id", req.UserID),
		zap.String("provider_used", dispatched.ProviderUsed))

	return &Result{
		Text:         dispatched.Text,
		HTML:         render.Markdown(dispatched.Text),
		Outcome:      true,
		ProviderUsed: dispatched.ProviderUsed,
		RecordID:     record.ID.String(),
	}
}

// preferredModel resolves the user's stored preference. An unknown
// user simply has none.
func (s *Service) preferredModel(ctx context.Context, userID string) string {
	if s.users == nil || userID == "" {
		return ""
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.PreferredModel
}

// fail records and renders a terminal failure
func (s *Service) fail(ctx context.Context, record *models.PromptRecord, providerID, errorMessage string) *Result {
	text := render.FailureText(errorMessage)
	record.MarkFailed(text, providerID, errorMessage)
	s.recorder.Append(ctx, record)

	s.logger.Warn("generation failed",
		zap.String("record_id", record.ID.String()),
		zap.String("user_id", record.UserID),
		zap.String("provider_used", providerID),
		zap.String("error", errorMessage))

	return &Result{
		Text:         text,
		HTML:         render.Markdown(text),
		Outcome:      false,
		ProviderUsed: providerID,
		RecordID:     record.ID.String(),
		Error:        errorMessage,
	}
}
