// Package openaicompat serves every provider family that speaks the
// OpenAI chat-completions wire shape: OpenAI itself, DeepSeek,
// Blackbox, Perplexity and xAI.
package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/services/providers"
)

// Default chat-completions base URLs per family. Perplexity serves
// /chat/completions from its root, the others nest it under /v1.
var defaultBaseURLs = map[models.Family]string{
	models.FamilyOpenAI:     "https://api.openai.com/v1",
	models.FamilyDeepSeek:   "https://api.deepseek.com/v1",
	models.FamilyBlackbox:   "https://api.blackbox.ai/v1",
	models.FamilyPerplexity: "https://api.perplexity.ai",
	models.FamilyXAI:        "https://api.x.ai/v1",
}

// Config holds shared adapter configuration
type Config struct {
	// BaseURL overrides the family default endpoint when set
	BaseURL string

	// Timeout bounds each request when the caller's context has no
	// earlier deadline
	Timeout time.Duration
}

// Adapter implements providers.Adapter for one OpenAI-compatible
// family. One instance per family; all are stateless.
type Adapter struct {
	family     models.Family
	baseURL    string
	httpClient *http.Client
}

// NewAdapter creates an adapter for the given family
func NewAdapter(family models.Family, cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURLs[family]
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Adapter{
		family:     family,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Family returns the provider family this adapter serves
func (a *Adapter) Family() models.Family {
	return a.family
}

// Generate submits the prompt as a single user message and returns
// choices[0].message.content.
func (a *Adapter) Generate(ctx context.Context, prompt string, provider *models.Provider) (string, error) {
	if provider.Credential == "" {
		return "", providers.NewMissingCredentialError(provider)
	}

	clientCfg := openai.DefaultConfig(provider.Credential)
	clientCfg.BaseURL = a.baseURL
	clientCfg.HTTPClient = a.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: provider.Endpoint,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(provider.Temperature),
		MaxTokens:   provider.MaxTokens,
	})
	if err != nil {
		return "", a.classifyError(provider.ID, err)
	}

	if len(resp.Choices) == 0 {
		return "", &providers.TransportError{
			Provider: provider.ID,
			Body:     "empty choices in completion response",
		}
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyError maps go-openai errors onto the adapter taxonomy:
// 429 is quota, 5xx and network failures are transport, other 4xx
// cannot succeed on retry.
func (a *Adapter) classifyError(providerID string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(providerID, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(providerID, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return &providers.TransportError{Provider: providerID, Cause: err}
}

func classifyStatus(providerID string, status int, body string, cause error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &providers.QuotaError{Provider: providerID, Cause: cause}
	case status >= 500 || status == 0:
		return &providers.TransportError{Provider: providerID, Status: status, Body: body, Cause: cause}
	default:
		return &providers.PermanentError{Provider: providerID, Reason: body}
	}
}
