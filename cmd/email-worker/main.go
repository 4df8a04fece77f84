// Package main is the entrypoint for the Email Worker Lambda function.
//
// The worker consumes verification email messages published by the server's
// verification hook, renders them and sends them through the configured
// provider. Each invocation receives a batch of SQS messages; messages that
// fail with a transient error are reported in BatchItemFailures so SQS
// redelivers only those.
//
// Cold start (main):
//  1. Initialize structured logger.
//  2. Resolve *_SSM_PARAM secrets outside local.
//  3. Load AWS SDK configuration.
//  4. Build the renderer, provider and CloudWatch metrics.
//  5. Register the handler and call lambda.Start.
//
// With APP_ENV=local the worker reads one SQS event from stdin instead:
//
//	echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/email-worker
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"verdant/internal/config"
	"verdant/internal/core"
	"verdant/internal/external"
	"verdant/internal/notifications/email"
	"verdant/internal/observability"
	"verdant/internal/types"
)

// Deliverer is the email.Mailer contract used by the worker.
type Deliverer interface {
	Deliver(ctx context.Context, msg email.Message) (string, error)
}

// Flusher ships buffered metrics at the end of an invocation.
type Flusher interface {
	Flush(ctx context.Context)
}

// Handler holds the dependencies for the email worker Lambda handler.
type Handler struct {
	mailer    Deliverer
	validator *core.Validator
	metrics   Flusher
	logger    types.Logger
	now       func() time.Time
}

// Handle processes an SQS event. Lambda SQS integration uses partial batch
// responses: only messages that failed transiently are returned.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to process SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	if h.metrics != nil {
		h.metrics.Flush(ctx)
	}
	return response, nil
}

// processMessage returns an error only when the message should be retried.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg email.Message
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		// Permanent parse failure, ACK.
		h.logger.Error("failed to unmarshal email message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}

	logger := h.logger.With(
		"message_id", record.MessageId,
		"reference_id", msg.ReferenceID,
		"request_id", msg.RequestID,
	)

	if sent, ok := record.Attributes["SentTimestamp"]; ok {
		if ts, err := parseMillisTimestamp(sent); err == nil {
			logger.Info("processing email message", "queue_lag_ms", h.now().Sub(ts).Milliseconds())
		}
	}

	if err := h.validator.ValidateStruct(msg.Params); err != nil {
		logger.Error("dropping invalid email message", "error", err.Error())
		return nil
	}

	if _, err := h.mailer.Deliver(ctx, msg); err != nil {
		if !isRetryable(err) {
			logger.Warn("dropping undeliverable email", "error", err.Error())
			return nil
		}
		return err
	}
	return nil
}

// isRetryable reports whether SQS should redeliver after err. Upstream and
// transport failures are retried; blocked recipients and render failures are
// not.
func isRetryable(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return strings.HasPrefix(string(appErr.Code), "upstream_")
}

// parseMillisTimestamp parses the SQS SentTimestamp attribute.
func parseMillisTimestamp(ms string) (time.Time, error) {
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("Email Worker Lambda initializing (cold start)")

	if err := config.ResolveSecrets(config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))); err != nil {
		logger.Error("Failed to resolve secrets", "error", err)
		os.Exit(1)
	}

	handler, err := newHandler(context.Background(), logger)
	if err != nil {
		logger.Error("Failed to initialize email worker", "error", err)
		os.Exit(1)
	}

	if os.Getenv("APP_ENV") == "local" {
		if err := runLocal(context.Background(), handler, os.Stdin, os.Stderr); err != nil {
			logger.Error("Local run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

func newHandler(ctx context.Context, logger *slog.Logger) (*Handler, error) {
	typedLogger := types.NewSlogLogger(logger)

	renderer, err := email.NewRenderer(email.RendererConfig{
		FromAddress: envOr("EMAIL_FROM_ADDRESS", "no-reply@verdant.app"),
		FromName:    envOr("EMAIL_FROM_NAME", "Verdant Assistant"),
	})
	if err != nil {
		return nil, err
	}

	local := os.Getenv("APP_ENV") == "local"
	var awsCfg aws.Config
	if !local || os.Getenv("AWS_ENDPOINT_URL") != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(envOr("AWS_REGION", "us-east-1")))
		if err != nil {
			return nil, fmt.Errorf("loading AWS SDK config: %w", err)
		}
		if ep := os.Getenv("AWS_ENDPOINT_URL"); ep != "" {
			awsCfg.BaseEndpoint = aws.String(ep)
		}
	}

	var provider email.Provider
	switch envOr("EMAIL_PROVIDER", config.EmailProviderSendGrid) {
	case config.EmailProviderSES:
		provider = external.NewSESClient(awsCfg, os.Getenv("SES_CONFIGURATION_SET"))
	default:
		key := os.Getenv("SENDGRID_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required")
		}
		provider = external.NewSendGridClient(&http.Client{Timeout: 10 * time.Second}, external.SendGridClientConfig{
			APIKey: key,
			Logger: logger,
		})
	}

	var metrics *observability.CloudWatchMetrics
	mailerMetrics := email.Metrics(observability.Nop{})
	if !local {
		metrics = observability.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), envOr("METRIC_NAMESPACE", "Verdant"), nil, logger)
		mailerMetrics = metrics
	}

	h := &Handler{
		mailer: email.NewMailer(email.MailerConfig{
			Renderer: renderer,
			Provider: provider,
			Metrics:  mailerMetrics,
			Logger:   typedLogger,
		}),
		validator: core.NewValidator(),
		logger:    typedLogger,
		now:       time.Now,
	}
	if metrics != nil {
		h.metrics = metrics
	}
	return h, nil
}

// runLocal feeds one JSON SQS event from in through the handler and writes
// the batch response to out when anything failed.
func runLocal(ctx context.Context, h *Handler, in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return errors.New("no input received on stdin")
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := h.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	if len(response.BatchItemFailures) > 0 {
		h.logger.Warn("Handler reported partial failures", "failed_count", len(response.BatchItemFailures))
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	h.logger.Info("Handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
