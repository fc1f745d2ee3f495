package common

import "context"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID stores a request correlation ID in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ForRequest returns l tagged with the correlation ID carried by ctx.
func (l *Logger) ForRequest(ctx context.Context) *Logger {
	if id := CorrelationID(ctx); id != "" {
		return l.WithCorrelationId(id)
	}
	return l
}
