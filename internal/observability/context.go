package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	channelKey   contextKey = "channel"
	threadKey    contextKey = "thread_ts"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithThread adds the reply channel and thread timestamp to the context.
func WithThread(ctx context.Context, channel, threadTS string) context.Context {
	ctx = context.WithValue(ctx, channelKey, channel)
	ctx = context.WithValue(ctx, threadKey, threadTS)
	return ctx
}

// ThreadFromContext retrieves the reply channel and thread timestamp.
// Returns empty strings if not present.
func ThreadFromContext(ctx context.Context) (channel, threadTS string) {
	if v := ctx.Value(channelKey); v != nil {
		if s, ok := v.(string); ok {
			channel = s
		}
	}
	if v := ctx.Value(threadKey); v != nil {
		if s, ok := v.(string); ok {
			threadTS = s
		}
	}
	return channel, threadTS
}

// Logger returns base enriched with the event fields carried by ctx.
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	requestID := RequestIDFromContext(ctx)
	channel, threadTS := ThreadFromContext(ctx)
	if requestID == "" && channel == "" && threadTS == "" {
		return base
	}
	return WithEventContext(base, requestID, channel, threadTS)
}
