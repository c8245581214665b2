package models

import "time"

// Family discriminates which wire adapter serves a provider.
type Family string

const (
	FamilyGoogle     Family = "google"
	FamilyOpenAI     Family = "openai"
	FamilyAnthropic  Family = "anthropic"
	FamilyPerplexity Family = "perplexity"
	FamilyDeepSeek   Family = "deepseek"
	FamilyBlackbox   Family = "blackbox"
	FamilyXAI        Family = "xai"
)

// Families lists every family with a registered adapter.
var Families = []Family{
	FamilyGoogle,
	FamilyOpenAI,
	FamilyAnthropic,
	FamilyPerplexity,
	FamilyDeepSeek,
	FamilyBlackbox,
	FamilyXAI,
}

// Valid reports whether the family has a corresponding adapter.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// Provider describes one configured LLM endpoint.
type Provider struct {
	ID          string  `json:"id" db:"id" validate:"required"`
	DisplayName string  `json:"display_name" db:"display_name" validate:"required"`
	Family      Family  `json:"family" db:"family" validate:"required"`
	Endpoint    string  `json:"endpoint" db:"endpoint" validate:"required"`
	Credential  string  `json:"credential,omitempty" db:"credential"`
	MaxTokens   int     `json:"max_tokens" db:"max_tokens" validate:"gt=0"`
	Temperature float64 `json:"temperature" db:"temperature" validate:"gte=0,lte=1"`
	Priority    int     `json:"priority" db:"priority"`
	Enabled     bool    `json:"enabled" db:"enabled"`
	IsDefault   bool    `json:"is_default" db:"is_default"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Provider model
func (Provider) TableName() string {
	return "providers"
}

// HasCredential reports whether a usable credential is configured.
// The google family may run on the process-wide default key, so an
// empty credential is acceptable there; the substitution itself is an
// adapter contract, not a registry one.
func (p *Provider) HasCredential() bool {
	return p.Credential != "" || p.Family == FamilyGoogle
}
