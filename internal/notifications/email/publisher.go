package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"verdant/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation. Production code uses
// the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is the queue payload consumed by the email worker.
type Message struct {
	ReferenceID string       `json:"reference_id"`
	RequestID   string       `json:"request_id,omitempty"`
	Params      VerifyParams `json:"params"`
}

// Publisher enqueues verification emails for the worker.
type Publisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

func NewPublisher(client SQSSender, queueURL string, logger types.Logger) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish serializes msg and sends it to the email queue.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("email publisher: failed to marshal message: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue, "failed to enqueue email", err)
	}

	p.logger.Info("verification email queued",
		"reference_id", msg.ReferenceID,
		"to", maskAddress(msg.Params.User.Email),
		"sqs_message_id", aws.ToString(out.MessageId),
	)
	return nil
}
