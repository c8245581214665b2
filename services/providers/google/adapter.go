// Package google implements the Gemini generateContent adapter.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/services/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds adapter configuration
type Config struct {
	// BaseURL overrides the production endpoint when set
	BaseURL string

	// DefaultAPIKey substitutes for providers stored without a
	// credential. The google family is the only one with this
	// fallback.
	DefaultAPIKey string

	// Timeout bounds each request when the caller's context has no
	// earlier deadline
	Timeout time.Duration
}

// Adapter implements providers.Adapter for the google family
type Adapter struct {
	baseURL       string
	defaultAPIKey string
	httpClient    *http.Client
}

// NewAdapter creates a Gemini adapter
func NewAdapter(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Adapter{
		baseURL:       baseURL,
		defaultAPIKey: cfg.DefaultAPIKey,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Family returns the provider family this adapter serves
func (a *Adapter) Family() models.Family {
	return models.FamilyGoogle
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate submits the prompt and returns
// candidates[0].content.parts[0].text. A provider stored without a
// credential runs on the process-wide default key; only when both are
// empty does the call fail before reaching the network.
func (a *Adapter) Generate(ctx context.Context, prompt string, provider *models.Provider) (string, error) {
	apiKey := provider.Credential
	if apiKey == "" {
		apiKey = a.defaultAPIKey
	}
	if apiKey == "" {
		return "", providers.NewMissingCredentialError(provider)
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     provider.Temperature,
			MaxOutputTokens: provider.MaxTokens,
		},
	})
	if err != nil {
		return "", &providers.PermanentError{
			Provider: provider.ID,
			Reason:   fmt.Sprintf("encode request: %v", err),
		}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		a.baseURL, provider.Endpoint, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &providers.PermanentError{
			Provider: provider.ID,
			Reason:   fmt.Sprintf("build request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &providers.TransportError{Provider: provider.ID, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &providers.TransportError{Provider: provider.ID, Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse(provider.ID, resp.StatusCode, body)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &providers.TransportError{
			Provider: provider.ID,
			Status:   resp.StatusCode,
			Body:     string(body),
			Cause:    err,
		}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &providers.TransportError{
			Provider: provider.ID,
			Status:   resp.StatusCode,
			Body:     "empty candidates in generateContent response",
		}
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// classifyResponse maps the non-2xx status onto the adapter taxonomy.
// Gemini reports quota depletion as 429 RESOURCE_EXHAUSTED.
func classifyResponse(providerID string, status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &providers.QuotaError{Provider: providerID}
	case status >= 500:
		return &providers.TransportError{Provider: providerID, Status: status, Body: string(body)}
	default:
		return &providers.PermanentError{Provider: providerID, Reason: errorReason(status, body)}
	}
}

func errorReason(status int, body []byte) string {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
