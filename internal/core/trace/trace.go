// Package trace provides request-scoped tracing identifiers.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// Context contains request tracing information.
type Context struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceKey struct{}

// WithTrace adds the trace context to ctx.
func WithTrace(ctx context.Context, t *Context) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// Get returns the trace context from ctx, or nil.
func Get(ctx context.Context) *Context {
	if v, ok := ctx.Value(traceKey{}).(*Context); ok {
		return v
	}
	return nil
}

// GetRequestID returns the request ID from ctx or empty string.
func GetRequestID(ctx context.Context) string {
	if t := Get(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// New creates a trace context with generated IDs.
func New() *Context {
	return &Context{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}
