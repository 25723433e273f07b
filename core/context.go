package core

import (
	"context"
	"time"
)

// Context keys for assessment options
type contextKey string

const (
	suppressHeaderKey contextKey = "suppressHeader"
	clockKey          contextKey = "clock"
)

// WithSuppressHeader marks the context so that no run header is printed.
// The serve and mcp commands use this since stdout is not a terminal for them.
func WithSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}

// WithClock pins the reference time of an assessment. Tests use it to make
// snapshots reproducible.
func WithClock(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey, now)
}

// nowFrom returns the reference time for an assessment, in UTC.
func nowFrom(ctx context.Context) time.Time {
	if clock, ok := ctx.Value(clockKey).(func() time.Time); ok && clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}
