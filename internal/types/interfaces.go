package types

import "context"

// Logger is the minimal structured logger used by packages that must not
// depend on log/slog directly (the Lambda worker adapts *slog.Logger to it).
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Completer produces a text completion for a single user prompt. It is the
// seam between the hazard description service and the hosted model provider.
type Completer interface {
	// Complete sends prompt as one user-role message, capped at maxTokens,
	// and returns the text of the first completion choice.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Model returns the fixed model identifier used for every call.
	Model() string
}

// CountyRiskReader loads county risk records from the persistence layer.
type CountyRiskReader interface {
	GetByCounty(ctx context.Context, stateAbbr, countyName string) (*CountyRiskRecord, error)
	GetByFIPS(ctx context.Context, fips string) (*CountyRiskRecord, error)
}

// SendInput defines the contract for transmitting a pre-rendered email.
type SendInput struct {
	To          string
	From        SenderIdentity
	Subject     string
	BodyHTML    string
	BodyText    string
	ReferenceID string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}
