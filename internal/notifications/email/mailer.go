package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"verdant/internal/types"
)

// Provider transmits a rendered email. Satisfied by the SendGrid and SES
// clients in internal/external.
type Provider interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}

// Metrics records email outcomes by delivery path.
type Metrics interface {
	RecordEmail(path, outcome string)
}

// Delivery paths and outcomes reported to Metrics.
const (
	PathInline = "inline"
	PathQueued = "queued"
	PathWorker = "worker"

	OutcomeSent   = "sent"
	OutcomeQueued = "queued"
	OutcomeFailed = "failed"
)

// Result describes what happened to a verification request.
type Result struct {
	ReferenceID   string
	Queued        bool
	ProviderMsgID string
}

// Mailer dispatches verification emails. With a publisher the email is
// queued for the worker; otherwise it is rendered and sent inline.
type Mailer struct {
	renderer  *Renderer
	provider  Provider
	publisher *Publisher
	metrics   Metrics
	logger    types.Logger
}

// MailerConfig wires a Mailer. Publisher is optional; Provider is required
// unless Publisher is set.
type MailerConfig struct {
	Renderer  *Renderer
	Provider  Provider
	Publisher *Publisher
	Metrics   Metrics
	Logger    types.Logger
}

func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		renderer:  cfg.Renderer,
		provider:  cfg.Provider,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// SendVerification queues or sends the verification email for p.
func (m *Mailer) SendVerification(ctx context.Context, p VerifyParams) (Result, error) {
	msg := Message{
		ReferenceID: uuid.NewString(),
		RequestID:   types.GetRequestID(ctx),
		Params:      p,
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, msg); err != nil {
			m.record(PathQueued, OutcomeFailed)
			return Result{}, err
		}
		m.record(PathQueued, OutcomeQueued)
		return Result{ReferenceID: msg.ReferenceID, Queued: true}, nil
	}

	id, err := m.deliver(ctx, msg, PathInline)
	if err != nil {
		return Result{}, err
	}
	return Result{ReferenceID: msg.ReferenceID, ProviderMsgID: id}, nil
}

// Deliver renders and sends a queued message. Used by the email worker.
func (m *Mailer) Deliver(ctx context.Context, msg Message) (string, error) {
	return m.deliver(ctx, msg, PathWorker)
}

func (m *Mailer) deliver(ctx context.Context, msg Message, path string) (string, error) {
	if m.provider == nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "no email provider configured", nil)
	}

	rendered, sender, err := m.renderer.Render(msg.Params)
	if err != nil {
		m.record(path, OutcomeFailed)
		return "", types.NewAppError(types.ErrCodeInternalRender, "failed to render verification email", err)
	}

	id, err := m.provider.Send(ctx, types.SendInput{
		To:          msg.Params.User.Email,
		From:        sender,
		Subject:     rendered.Subject,
		BodyHTML:    rendered.BodyHTML,
		BodyText:    rendered.BodyText,
		ReferenceID: msg.ReferenceID,
	})
	if err != nil {
		m.record(path, OutcomeFailed)
		m.logger.Error("verification email failed",
			"reference_id", msg.ReferenceID,
			"to", maskAddress(msg.Params.User.Email),
			"path", path,
			"error", err,
		)
		return "", fmt.Errorf("sending verification email: %w", err)
	}

	m.record(path, OutcomeSent)
	m.logger.Info("verification email sent",
		"reference_id", msg.ReferenceID,
		"to", maskAddress(msg.Params.User.Email),
		"path", path,
		"provider_message_id", id,
	)
	return id, nil
}

func (m *Mailer) record(path, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordEmail(path, outcome)
	}
}
