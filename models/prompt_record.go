package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PromptRecord is the append-only history entry written once per
// orchestrated generation. Records are immutable after creation.
type PromptRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
	UserID       string          `json:"user_id" db:"user_id"`
	Prompt       string          `json:"prompt" db:"prompt"`
	Response     string          `json:"response" db:"response"`
	Success      bool            `json:"success" db:"success"`
	ProviderUsed string          `json:"provider_used" db:"provider_used"`
	ErrorMessage string          `json:"error_message" db:"error_message"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
}

// TableName returns the table name for the PromptRecord model
func (PromptRecord) TableName() string {
	return "prompt_history"
}

// NewPromptRecord creates the skeleton record at orchestrator entry.
// Outcome fields are filled by MarkSucceeded or MarkFailed before the
// record reaches the sink.
func NewPromptRecord(userID, prompt string, metadata map[string]string) *PromptRecord {
	rec := &PromptRecord{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		UserID:    userID,
		Prompt:    prompt,
	}
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			rec.Metadata = data
		}
	}
	return rec
}

// MarkSucceeded sets the successful outcome.
func (r *PromptRecord) MarkSucceeded(response, providerID string) {
	r.Success = true
	r.Response = response
	r.ProviderUsed = providerID
	r.ErrorMessage = ""
}

// MarkFailed sets the failure outcome. The response carries the
// stylized error body shown to the user, never the raw cause.
func (r *PromptRecord) MarkFailed(response, providerID, errorMessage string) {
	r.Success = false
	r.Response = response
	r.ProviderUsed = providerID
	r.ErrorMessage = errorMessage
}
