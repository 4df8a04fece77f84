package hazardinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	args := m.Called(ctx, prompt, maxTokens)
	return args.String(0), args.Error(1)
}

func (m *mockCompleter) Model() string { return "gpt-3.5-turbo" }

type recordedCall struct {
	model, outcome string
}

type fakeMetrics struct {
	calls []recordedCall
}

func (f *fakeMetrics) RecordCompletion(model, outcome string, _ time.Duration) {
	f.calls = append(f.calls, recordedCall{model, outcome})
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(types.HazardInfoRequest{CountyName: "Harris", StateAbbr: "TX", Hazard: "Hurricane"})
	assert.Equal(t,
		"Generate 2-3 sentences about Hurricane risks in Harris, TX and what residents can do to help. Focus on local mitigation strategies.",
		got)
}

func TestBuildPrompt_PassesThroughEmptyFields(t *testing.T) {
	got := BuildPrompt(types.HazardInfoRequest{})
	assert.Equal(t, "Generate 2-3 sentences about  risks in ,  and what residents can do to help. Focus on local mitigation strategies.", got)
}

func TestDescribe_Success(t *testing.T) {
	c := &mockCompleter{}
	req := types.HazardInfoRequest{CountyName: "Boulder", StateAbbr: "CO", Hazard: "Wildfire"}
	c.On("Complete", mock.Anything, BuildPrompt(req), 100).Return("Create defensible space.", nil).Once()

	m := &fakeMetrics{}
	text, err := NewService(c, nil, WithMetrics(m)).Describe(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Create defensible space.", text)
	assert.Equal(t, []recordedCall{{"gpt-3.5-turbo", OutcomeSuccess}}, m.calls)
	c.AssertExpectations(t)
}

func TestDescribe_ErrorReturnedWithoutRetry(t *testing.T) {
	c := &mockCompleter{}
	upstream := types.NewAppError(types.ErrCodeUpstreamCompletion, "You exceeded your current quota", nil)
	c.On("Complete", mock.Anything, mock.Anything, 100).Return("", upstream).Once()

	m := &fakeMetrics{}
	_, err := NewService(c, nil, WithMetrics(m)).Describe(context.Background(), types.HazardInfoRequest{Hazard: "Hail"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, upstream))
	assert.Equal(t, []recordedCall{{"gpt-3.5-turbo", OutcomeError}}, m.calls)
	c.AssertNumberOfCalls(t, "Complete", 1)
}

func TestDescribe_MaxTokensOption(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything, 60).Return("ok", nil)

	_, err := NewService(c, nil, WithMaxTokens(60)).Describe(context.Background(), types.HazardInfoRequest{})
	require.NoError(t, err)

	// Non-positive values keep the default.
	c2 := &mockCompleter{}
	c2.On("Complete", mock.Anything, mock.Anything, DefaultMaxTokens).Return("ok", nil)
	_, err = NewService(c2, nil, WithMaxTokens(0)).Describe(context.Background(), types.HazardInfoRequest{})
	require.NoError(t, err)
}
