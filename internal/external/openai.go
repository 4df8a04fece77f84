package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"verdant/internal/types"
)

const openAIAPIBase = "https://api.openai.com/v1"

// OpenAIClientConfig configures an OpenAIClient.
type OpenAIClientConfig struct {
	APIKey  string
	BaseURL string // defaults to openAIAPIBase
	Model   string
	Logger  *slog.Logger
}

// OpenAIClient calls the Chat Completions endpoint over plain HTTP. Requests
// are sent once; the breaker still trips on a run of upstream failures.
type OpenAIClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	model   string
}

// NewOpenAIClient creates a client with its own breaker and no retries.
func NewOpenAIClient(httpClient *http.Client, cfg OpenAIClientConfig) *OpenAIClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := NewBaseClient(httpClient, "openai", NoRetry(), "Verdant/1.0", WithLogger(logger))
	return NewOpenAIClientWithBase(base, cfg)
}

// NewOpenAIClientWithBase creates a client around a caller-supplied BaseClient.
func NewOpenAIClientWithBase(base *BaseClient, cfg OpenAIClientConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIAPIBase
	}
	return &OpenAIClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends prompt as a single user message and returns the content of
// the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamCompletion, "failed to read completion response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", openAIStatusError(resp.StatusCode, raw)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamCompletion, "malformed completion response", err)
	}
	if len(out.Choices) == 0 {
		return "", types.NewAppError(types.ErrCodeUpstreamCompletion, "completion returned no choices", errors.New("empty choices"))
	}
	return out.Choices[0].Message.Content, nil
}

// openAIStatusError surfaces OpenAI's own message (e.g. "You exceeded your
// current quota") when the body carries one.
func openAIStatusError(status int, raw []byte) error {
	var e openAIErrorResponse
	msg := ""
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Message
	} else {
		msg = fmt.Sprintf("completion API returned status %d", status)
	}
	return types.NewAppErrorWithDetails(types.ErrCodeUpstreamCompletion, msg, nil, map[string]any{"status": status})
}
