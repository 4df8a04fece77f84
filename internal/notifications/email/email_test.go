package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Error(string, ...any)        {}
func (nopLogger) Warn(string, ...any)         {}
func (l nopLogger) With(...any) types.Logger { return l }

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Send(ctx context.Context, in types.SendInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type mockSQS struct{ mock.Mock }

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sqs.SendMessageOutput)
	return out, args.Error(1)
}

type recordedMetrics struct{ calls [][2]string }

func (r *recordedMetrics) RecordEmail(path, outcome string) {
	r.calls = append(r.calls, [2]string{path, outcome})
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(RendererConfig{FromAddress: "no-reply@verdant.app", FromName: "Verdant Assistant"})
	require.NoError(t, err)
	return r
}

func sampleParams() VerifyParams {
	return VerifyParams{
		User:  User{Name: "Ana", Email: "ana@example.com"},
		URL:   "https://verdant.app/verify?token=abc",
		Token: "abc",
	}
}

func TestRender_Verification(t *testing.T) {
	r := newTestRenderer(t)

	out, sender, err := r.Render(sampleParams())
	require.NoError(t, err)

	assert.Equal(t, VerifySubject, out.Subject)
	assert.Equal(t, types.SenderIdentity{Name: "Verdant Assistant", Address: "no-reply@verdant.app"}, sender)

	assert.Contains(t, out.BodyHTML, "Hello Ana,")
	assert.Contains(t, out.BodyHTML, "Verify Email")
	assert.Contains(t, out.BodyHTML, `href="https://verdant.app/verify?token=abc"`)
	assert.Contains(t, out.BodyHTML, "Verdant Assistant: Verify your email address")

	assert.Contains(t, out.BodyText, "Hello Ana,")
	assert.Contains(t, out.BodyText, "https://verdant.app/verify?token=abc")
}

func TestRender_GreetingFallsBackToFriend(t *testing.T) {
	r := newTestRenderer(t)
	p := sampleParams()
	p.User.Name = "  "

	out, _, err := r.Render(p)
	require.NoError(t, err)
	assert.Contains(t, out.BodyHTML, "Hello Friend,")
	assert.Contains(t, out.BodyText, "Hello Friend,")
}

func TestRender_EscapesHTML(t *testing.T) {
	r := newTestRenderer(t)
	p := sampleParams()
	p.User.Name = "<b>Eve</b>"

	out, _, err := r.Render(p)
	require.NoError(t, err)
	assert.NotContains(t, out.BodyHTML, "<b>Eve</b>")
	assert.Contains(t, out.BodyHTML, "&lt;b&gt;Eve&lt;/b&gt;")
}

func TestMailer_SendsInline(t *testing.T) {
	prov := &mockProvider{}
	prov.On("Send", mock.Anything, mock.MatchedBy(func(in types.SendInput) bool {
		return in.To == "ana@example.com" &&
			in.Subject == VerifySubject &&
			in.From.Address == "no-reply@verdant.app" &&
			in.ReferenceID != ""
	})).Return("msg-1", nil).Once()
	metrics := &recordedMetrics{}

	m := NewMailer(MailerConfig{Renderer: newTestRenderer(t), Provider: prov, Metrics: metrics, Logger: nopLogger{}})
	res, err := m.SendVerification(context.Background(), sampleParams())
	require.NoError(t, err)

	assert.False(t, res.Queued)
	assert.Equal(t, "msg-1", res.ProviderMsgID)
	assert.NotEmpty(t, res.ReferenceID)
	assert.Equal(t, [][2]string{{PathInline, OutcomeSent}}, metrics.calls)
	prov.AssertExpectations(t)
}

func TestMailer_ProviderFailure(t *testing.T) {
	prov := &mockProvider{}
	blocked := types.NewAppError(types.ErrCodeEmailBlocked, "blocked", nil)
	prov.On("Send", mock.Anything, mock.Anything).Return("", blocked)
	metrics := &recordedMetrics{}

	m := NewMailer(MailerConfig{Renderer: newTestRenderer(t), Provider: prov, Metrics: metrics, Logger: nopLogger{}})
	_, err := m.SendVerification(context.Background(), sampleParams())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeEmailBlocked, appErr.Code)
	assert.Equal(t, [][2]string{{PathInline, OutcomeFailed}}, metrics.calls)
}

func TestMailer_QueuesWhenPublisherSet(t *testing.T) {
	q := &mockSQS{}
	var body string
	q.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		body = aws.ToString(in.MessageBody)
		return aws.ToString(in.QueueUrl) == "https://sqs.local/verdant-email"
	})).Return(&sqs.SendMessageOutput{MessageId: aws.String("sqs-1")}, nil).Once()
	prov := &mockProvider{}
	metrics := &recordedMetrics{}

	m := NewMailer(MailerConfig{
		Renderer:  newTestRenderer(t),
		Provider:  prov,
		Publisher: NewPublisher(q, "https://sqs.local/verdant-email", nopLogger{}),
		Metrics:   metrics,
		Logger:    nopLogger{},
	})
	ctx := types.WithRequestID(context.Background(), "req-1")
	res, err := m.SendVerification(ctx, sampleParams())
	require.NoError(t, err)
	assert.True(t, res.Queued)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	assert.Equal(t, res.ReferenceID, msg.ReferenceID)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.Equal(t, sampleParams(), msg.Params)

	assert.Equal(t, [][2]string{{PathQueued, OutcomeQueued}}, metrics.calls)
	prov.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	q.AssertExpectations(t)
}

func TestMailer_QueueFailure(t *testing.T) {
	q := &mockSQS{}
	q.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	m := NewMailer(MailerConfig{
		Renderer:  newTestRenderer(t),
		Publisher: NewPublisher(q, "https://sqs.local/q", nopLogger{}),
		Logger:    nopLogger{},
	})
	_, err := m.SendVerification(context.Background(), sampleParams())

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamQueue, appErr.Code)
}

func TestMailer_DeliverFromWorker(t *testing.T) {
	prov := &mockProvider{}
	prov.On("Send", mock.Anything, mock.MatchedBy(func(in types.SendInput) bool {
		return in.ReferenceID == "ref-7"
	})).Return("msg-7", nil)
	metrics := &recordedMetrics{}

	m := NewMailer(MailerConfig{Renderer: newTestRenderer(t), Provider: prov, Metrics: metrics, Logger: nopLogger{}})
	id, err := m.Deliver(context.Background(), Message{ReferenceID: "ref-7", Params: sampleParams()})
	require.NoError(t, err)
	assert.Equal(t, "msg-7", id)
	assert.Equal(t, [][2]string{{PathWorker, OutcomeSent}}, metrics.calls)
}

func TestMaskAddress(t *testing.T) {
	tests := map[string]string{
		"":                    "",
		"john@gmail.com":      "j***@gmail.com",
		"invalid":             "***",
		"@domain.com":         "***@domain.com",
		"user@sub@domain.com": "u***@sub@domain.com",
	}
	for in, want := range tests {
		assert.Equal(t, want, maskAddress(in), in)
	}
}
