package external

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"verdant/internal/types"
)

type fakeGemini struct {
	resp      *genai.GenerateContentResponse
	err       error
	gotModel  string
	gotPrompt string
	gotMax    int32
	calls     int
}

func (f *fakeGemini) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.gotModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.gotPrompt = contents[0].Parts[0].Text
	}
	if cfg != nil {
		f.gotMax = cfg.MaxOutputTokens
	}
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: s}}}}},
	}
}

func TestGeminiComplete_Success(t *testing.T) {
	fake := &fakeGemini{resp: textResponse("Wildfire smoke drifts in summer.")}
	c := newGeminiClient(fake, "gemini-2.0-flash", nil)

	text, err := c.Complete(context.Background(), "prompt", 100)
	require.NoError(t, err)

	assert.Equal(t, "Wildfire smoke drifts in summer.", text)
	assert.Equal(t, "gemini-2.0-flash", fake.gotModel)
	assert.Equal(t, "prompt", fake.gotPrompt)
	assert.Equal(t, int32(100), fake.gotMax)
}

func TestGeminiComplete_NoCandidates(t *testing.T) {
	c := newGeminiClient(&fakeGemini{resp: &genai.GenerateContentResponse{}}, "m", nil)
	_, err := c.Complete(context.Background(), "p", 100)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamCompletion, appErr.Code)
}

func TestGeminiComplete_RateLimited(t *testing.T) {
	fake := &fakeGemini{err: genai.APIError{Code: 429, Message: "quota exhausted"}}
	_, err := newGeminiClient(fake, "m", nil).Complete(context.Background(), "p", 100)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
	assert.Equal(t, "quota exhausted", appErr.Message)
}

func TestGeminiComplete_BreakerOpens(t *testing.T) {
	fake := &fakeGemini{err: errors.New("connection reset")}
	c := newGeminiClient(fake, "m", nil)

	for range 5 {
		_, err := c.Complete(context.Background(), "p", 100)
		require.Error(t, err)
	}
	_, err := c.Complete(context.Background(), "p", 100)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, 5, fake.calls)
}
