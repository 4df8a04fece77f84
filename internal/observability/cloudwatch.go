package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/jonboulle/clockwork"
)

// CloudWatchClient is the subset of the CloudWatch SDK client used here.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metric names and dimensions.
const (
	MetricAPIRequestCount    = "APIRequestCount"
	MetricAPILatency         = "APILatency"
	MetricCompletionCount    = "CompletionCount"
	MetricCompletionLatency  = "CompletionLatency"
	MetricVerificationEmails = "VerificationEmails"
	MetricViewSessions       = "ViewSessions"

	DimMethod  = "Method"
	DimRoute   = "Route"
	DimStatus  = "Status"
	DimModel   = "Model"
	DimOutcome = "Outcome"
	DimPath    = "Path"
)

// PutMetricData accepts up to 1000 datums per call.
const cloudWatchBatchSize = 1000

// CloudWatchMetrics buffers datums in memory and ships them with
// PutMetricData on every flush, so request handling never waits on AWS.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	clock     clockwork.Clock

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
}

func NewCloudWatchMetrics(client CloudWatchClient, namespace string, clock clockwork.Clock, logger *slog.Logger) *CloudWatchMetrics {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		clock:     clock,
		logger:    logger.With("component", "cloudwatch_metrics"),
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchMetrics) add(datums ...cwtypes.MetricDatum) {
	now := m.clock.Now()
	for i := range datums {
		datums[i].Timestamp = aws.Time(now)
	}
	m.mu.Lock()
	m.pending = append(m.pending, datums...)
	m.mu.Unlock()
}

func (m *CloudWatchMetrics) RecordRequest(method, route, status string, d time.Duration) {
	m.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dim(DimMethod, method), dim(DimRoute, route), dim(DimStatus, status)},
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{dim(DimMethod, method), dim(DimRoute, route)},
		},
	)
}

func (m *CloudWatchMetrics) RecordCompletion(model, outcome string, d time.Duration) {
	m.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricCompletionCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dim(DimModel, model), dim(DimOutcome, outcome)},
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricCompletionLatency),
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{dim(DimModel, model)},
		},
	)
}

func (m *CloudWatchMetrics) RecordEmail(path, outcome string) {
	m.add(cwtypes.MetricDatum{
		MetricName: aws.String(MetricVerificationEmails),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(DimPath, path), dim(DimOutcome, outcome)},
	})
}

func (m *CloudWatchMetrics) SetViewSessions(n int) {
	m.add(cwtypes.MetricDatum{
		MetricName: aws.String(MetricViewSessions),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// Flush sends everything buffered so far. Failed batches are logged and
// dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for start := 0; start < len(batch); start += cloudWatchBatchSize {
		end := min(start+cloudWatchBatchSize, len(batch))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			m.logger.Error("failed to put metric data", "datums", end-start, "error", err.Error())
		}
	}
}

// Run flushes every interval until ctx is cancelled, then flushes once more
// with a short grace period.
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) error {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			m.Flush(flushCtx)
			cancel()
			return nil
		case <-ticker.Chan():
			m.Flush(ctx)
		}
	}
}
