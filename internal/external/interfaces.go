package external

import (
	"context"

	"verdant/internal/types"
)

// EmailProvider transmits pre-rendered email content (Subject, BodyHTML,
// BodyText) and returns the provider's message ID.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}

// Compile-time interface checks.
var (
	_ types.Completer = (*OpenAIClient)(nil)
	_ types.Completer = (*GeminiClient)(nil)
	_ EmailProvider   = (*SendGridClient)(nil)
	_ EmailProvider   = (*SESClient)(nil)
)
