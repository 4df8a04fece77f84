// Package external holds Verdant's outbound integrations: the hosted
// completion providers that write hazard descriptions and the email
// providers that deliver verification mail. HTTP integrations go through
// BaseClient so they share circuit breaking, retry and error mapping.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"verdant/internal/types"

	"github.com/sony/gobreaker/v2"
)

// RetryPolicy configures how many times BaseClient re-sends a request that
// failed with 429 or 5xx, and how long it waits in between.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// NoRetry sends each request exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// DefaultRetryPolicy is used by the email providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// BaseClient wraps an *http.Client with a circuit breaker and a retry loop.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	sleepFn     func(time.Duration)
	logger      *slog.Logger
}

type BaseClientOption func(*baseClientOptions)

type baseClientOptions struct {
	sleepFn      func(time.Duration)
	logger       *slog.Logger
	tripAfter    uint32
	openDuration time.Duration
}

// WithSleepFunc replaces time.Sleep between retries. Tests pass a no-op.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(o *baseClientOptions) { o.sleepFn = fn }
}

// WithLogger logs circuit breaker state transitions.
func WithLogger(l *slog.Logger) BaseClientOption {
	return func(o *baseClientOptions) { o.logger = l }
}

// WithBreakerThreshold opens the circuit after n consecutive failures and
// keeps it open for d before probing again.
func WithBreakerThreshold(n uint32, d time.Duration) BaseClientOption {
	return func(o *baseClientOptions) {
		o.tripAfter = n
		o.openDuration = d
	}
}

// NewBaseClient creates a BaseClient with its own named circuit breaker.
func NewBaseClient(httpClient *http.Client, name string, policy RetryPolicy, userAgent string, opts ...BaseClientOption) *BaseClient {
	o := baseClientOptions{
		sleepFn:      time.Sleep,
		logger:       slog.Default(),
		tripAfter:    5,
		openDuration: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With("component", "http_client", "upstream", name)
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     o.openDuration,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &BaseClient{
		client:      httpClient,
		breaker:     cb,
		retryPolicy: policy,
		userAgent:   userAgent,
		sleepFn:     o.sleepFn,
		logger:      logger,
	}
}

// Do sends req through the breaker, retrying on 429 and 5xx according to the
// retry policy. The request ID from the context is forwarded as X-Request-ID.
//
// Any response other than 429/5xx is returned as-is and the caller closes the
// body. Exhausted retries, an open breaker and transport failures come back
// as *types.AppError.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	// Buffer the body so it can be replayed.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
		}
	}

	attempts := 1 + c.retryPolicy.MaxRetries
	var (
		lastResp *http.Response
		lastErr  error
	)
	for attempt := range attempts {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if lastResp != nil {
			lastResp.Body.Close()
			lastResp = nil
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		lastResp = resp

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if req.Context().Err() != nil {
			break
		}
		if attempt < attempts-1 {
			c.sleepFn(c.backoff(attempt, resp))
		}
	}

	appErr := c.mapError(lastResp, lastErr)
	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, appErr
}

// backoff honours Retry-After (seconds or HTTP date) and otherwise uses
// exponential backoff with jitter, clamped to [MinWait, MaxWait].
func (c *BaseClient) backoff(attempt int, resp *http.Response) time.Duration {
	p := c.retryPolicy
	clamp := func(d time.Duration) time.Duration {
		return max(p.MinWait, min(d, p.MaxWait))
	}

	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				return clamp(time.Duration(secs) * time.Second)
			}
			if t, err := http.ParseTime(ra); err == nil {
				return clamp(time.Until(t))
			}
		}
	}

	ceiling := math.Min(float64(p.MinWait)*math.Pow(2, float64(attempt)), float64(p.MaxWait))
	if ceiling <= float64(p.MinWait) {
		return p.MinWait
	}
	return time.Duration(float64(p.MinWait) + rand.Float64()*(ceiling-float64(p.MinWait)))
}

func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "circuit breaker is open", err)
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(types.ErrCodeUpstreamUnavailable, fmt.Sprintf("upstream returned %d", resp.StatusCode), err)
		}
	}
	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
}
