// Package anthropic implements the Messages API adapter for Claude
// models.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/services/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Config holds adapter configuration
type Config struct {
	// BaseURL overrides the production endpoint when set
	BaseURL string

	// Timeout bounds each request when the caller's context has no
	// earlier deadline
	Timeout time.Duration
}

// Adapter implements providers.Adapter for the anthropic family
type Adapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewAdapter creates an Anthropic adapter
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
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Family returns the provider family this adapter serves
func (a *Adapter) Family() models.Family {
	return models.FamilyAnthropic
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate submits the prompt as a single user message and returns
// content[0].text.
func (a *Adapter) Generate(ctx context.Context, prompt string, provider *models.Provider) (string, error) {
	if provider.Credential == "" {
		return "", providers.NewMissingCredentialError(provider)
	}

	payload, err := json.Marshal(messagesRequest{
		Model:       provider.Endpoint,
		MaxTokens:   provider.MaxTokens,
		Temperature: provider.Temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &providers.PermanentError{
			Provider: provider.ID,
			Reason:   fmt.Sprintf("encode request: %v", err),
		}
	}

	url := a.baseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &providers.PermanentError{
			Provider: provider.ID,
			Reason:   fmt.Sprintf("build request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", provider.Credential)
	req.Header.Set("anthropic-version", apiVersion)

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
		return "", a.classifyResponse(provider.ID, resp, body)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &providers.TransportError{
			Provider: provider.ID,
			Status:   resp.StatusCode,
			Body:     string(body),
			Cause:    err,
		}
	}

	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", &providers.TransportError{
			Provider: provider.ID,
			Status:   resp.StatusCode,
			Body:     "empty content in messages response",
		}
	}

	return parsed.Content[0].Text, nil
}

// classifyResponse maps the non-2xx status onto the adapter taxonomy.
// 429 carries the Retry-After header through when present.
func (a *Adapter) classifyResponse(providerID string, resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &providers.QuotaError{
			Provider:   providerID,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return &providers.TransportError{
			Provider: providerID,
			Status:   resp.StatusCode,
			Body:     string(body),
		}
	default:
		return &providers.PermanentError{
			Provider: providerID,
			Reason:   errorReason(resp.StatusCode, body),
		}
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func errorReason(status int, body []byte) string {
	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
