package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"verdant/internal/types"
)

// geminiModels is the subset of *genai.Models used by GeminiClient.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient generates completions through the Gemini API SDK. The SDK
// owns transport and auth; a breaker guards against a failing upstream.
type GeminiClient struct {
	models  geminiModels
	model   string
	breaker *gobreaker.CircuitBreaker[string]
}

// NewGeminiClient creates a client backed by the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cfg.HTTPOptions.Timeout = &timeout
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiClient(client.Models, model, logger), nil
}

func newGeminiClient(models geminiModels, model string, logger *slog.Logger) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gemini")
	return &GeminiClient{
		models: models,
		model:  model,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "gemini",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
			OnStateChange: func(_ string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string { return c.model }

// Complete generates text for prompt capped at maxTokens output tokens.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	text, err := c.breaker.Execute(func() (string, error) {
		resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxTokens),
		})
		if err != nil {
			return "", err
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", errors.New("completion returned no candidates")
		}
		return resp.Text(), nil
	})
	if err == nil {
		return text, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", types.NewAppError(types.ErrCodeUpstreamUnavailable, "circuit breaker is open", err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return "", types.NewAppError(types.ErrCodeUpstreamRateLimited, apiErr.Message, err)
	}
	return "", types.NewAppError(types.ErrCodeUpstreamCompletion, err.Error(), err)
}
