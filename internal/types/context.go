package types

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	viewIDKey    contextKey = "view_id"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithViewID stores the dashboard view session ID in the context so that
// outbound calls made on behalf of a page view can be correlated in logs.
func WithViewID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, viewIDKey, id)
}

// GetViewID retrieves the dashboard view session ID from the context.
func GetViewID(ctx context.Context) string {
	id, _ := ctx.Value(viewIDKey).(string)
	return id
}
