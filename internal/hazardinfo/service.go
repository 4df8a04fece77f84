// Package hazardinfo generates short, localized hazard descriptions with a
// hosted completion model. It is stateless: one request, one prompt, one
// upstream call.
package hazardinfo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"verdant/internal/types"
)

// DefaultMaxTokens caps the completion length.
const DefaultMaxTokens = 100

// Outcome labels reported to Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics records completion calls. Implementations live in observability.
type Metrics interface {
	RecordCompletion(model, outcome string, d time.Duration)
}

// Service produces hazard descriptions.
type Service struct {
	completer types.Completer
	maxTokens int
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMaxTokens overrides DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(c types.Completer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		completer: c,
		maxTokens: DefaultMaxTokens,
		logger:    logger.With("component", "hazardinfo"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPrompt renders the fixed prompt template. Inputs are not validated or
// escaped.
func BuildPrompt(req types.HazardInfoRequest) string {
	return fmt.Sprintf(
		"Generate 2-3 sentences about %s risks in %s, %s and what residents can do to help. Focus on local mitigation strategies.",
		req.Hazard, req.CountyName, req.StateAbbr,
	)
}

// Describe issues exactly one completion call for req and returns its text.
// Errors from the provider are returned unchanged; there are no retries.
func (s *Service) Describe(ctx context.Context, req types.HazardInfoRequest) (string, error) {
	start := s.now()
	text, err := s.completer.Complete(ctx, BuildPrompt(req), s.maxTokens)
	elapsed := s.now().Sub(start)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	if s.metrics != nil {
		s.metrics.RecordCompletion(s.completer.Model(), outcome, elapsed)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "hazard description failed",
			"request_id", types.GetRequestID(ctx),
			"hazard", req.Hazard,
			"county", req.CountyName,
			"state", req.StateAbbr,
			"model", s.completer.Model(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return "", err
	}

	s.logger.DebugContext(ctx, "hazard description generated",
		"hazard", req.Hazard,
		"model", s.completer.Model(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, nil
}
