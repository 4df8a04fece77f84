package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verdant/internal/core"
	"verdant/internal/notifications/email"
	"verdant/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Error(string, ...any)        {}
func (nopLogger) Warn(string, ...any)         {}
func (l nopLogger) With(...any) types.Logger { return l }

type mockDeliverer struct{ mock.Mock }

func (m *mockDeliverer) Deliver(ctx context.Context, msg email.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type countingFlusher struct{ flushes int }

func (f *countingFlusher) Flush(context.Context) { f.flushes++ }

func newTestHandler(d Deliverer, f Flusher) *Handler {
	return &Handler{
		mailer:    d,
		validator: core.NewValidator(),
		metrics:   f,
		logger:    nopLogger{},
		now:       func() time.Time { return time.UnixMilli(1_700_000_060_000) },
	}
}

func messageBody(t *testing.T, ref, addr string) string {
	t.Helper()
	b, err := json.Marshal(email.Message{
		ReferenceID: ref,
		Params: email.VerifyParams{
			User:  email.User{Name: "Ana", Email: addr},
			URL:   "https://verdant.app/verify?token=t",
			Token: "t",
		},
	})
	require.NoError(t, err)
	return string(b)
}

func TestHandle_PartialBatchFailures(t *testing.T) {
	d := &mockDeliverer{}
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(m email.Message) bool { return m.ReferenceID == "ok" })).
		Return("msg-1", nil)
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(m email.Message) bool { return m.ReferenceID == "transient" })).
		Return("", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "upstream returned 503", nil))
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(m email.Message) bool { return m.ReferenceID == "blocked" })).
		Return("", types.NewAppError(types.ErrCodeEmailBlocked, "recipient blocked", nil))
	flusher := &countingFlusher{}

	resp, err := newTestHandler(d, flusher).Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "1", Body: messageBody(t, "ok", "ana@example.com"), Attributes: map[string]string{"SentTimestamp": "1700000000000"}},
		{MessageId: "2", Body: messageBody(t, "transient", "ana@example.com")},
		{MessageId: "3", Body: messageBody(t, "blocked", "ana@example.com")},
		{MessageId: "4", Body: "not json"},
		{MessageId: "5", Body: messageBody(t, "invalid", "not-an-address")},
	}})

	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "2", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, 1, flusher.flushes)
	d.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.True(t, isRetryable(types.NewAppError(types.ErrCodeUpstreamRateLimited, "slow down", nil)))
	assert.False(t, isRetryable(types.NewAppError(types.ErrCodeEmailBlocked, "blocked", nil)))
	assert.False(t, isRetryable(types.NewAppError(types.ErrCodeInternalRender, "render", nil)))
}

func TestParseMillisTimestamp(t *testing.T) {
	ts, err := parseMillisTimestamp("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	_, err = parseMillisTimestamp("yesterday")
	assert.Error(t, err)
}

func TestRunLocal(t *testing.T) {
	d := &mockDeliverer{}
	d.On("Deliver", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	h := newTestHandler(d, nil)

	event, err := json.Marshal(events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-1", Body: messageBody(t, "r", "ana@example.com")},
	}})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runLocal(context.Background(), h, bytes.NewReader(event), &out))
	assert.Contains(t, out.String(), `"itemIdentifier": "m-1"`)

	assert.Error(t, runLocal(context.Background(), h, strings.NewReader(""), &out))
	assert.Error(t, runLocal(context.Background(), h, strings.NewReader("{"), &out))
}
