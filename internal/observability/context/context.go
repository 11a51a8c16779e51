package context

import (
	stdctx "context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	runIDKey     ctxKey = "refresh_run_id"
)

// WithRequestID stores the HTTP request identifier on the context.
func WithRequestID(ctx stdctx.Context, requestID string) stdctx.Context {
	return stdctx.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithRunID stores the refresh run identifier on the context.
func WithRunID(ctx stdctx.Context, runID string) stdctx.Context {
	return stdctx.WithValue(ctx, runIDKey, strings.TrimSpace(runID))
}

func RunIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(runIDKey).(string)
	return value
}
