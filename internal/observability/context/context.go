package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}

// WithRequestID stores the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

type jobKey struct{}

// WithJob tags work started by the scheduler so logs can be grouped per run.
func WithJob(ctx context.Context, job, runID string) context.Context {
	return context.WithValue(ctx, jobKey{}, [2]string{job, runID})
}

func JobFromContext(ctx context.Context) (job, runID string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(jobKey{}).([2]string)
	if !ok {
		return "", ""
	}
	return value[0], value[1]
}
