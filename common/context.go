package common

import (
	"context"
	"github.com/mywaytech/dentstage-sync/common/mlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type customContextKey string

var CustomContextKey = customContextKey("custom_context")

type CustomContextKeyValue struct {
	Tracer            trace.Tracer
	Logger            mlog.Logger
	CaptureSuppressed bool
}

// NewLoggerFromContext extract the Logger from "logger" value inside context
//
//nolint:ireturn
func NewLoggerFromContext(ctx context.Context) mlog.Logger {
	if customContext, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok &&
		customContext.Logger != nil {
		return customContext.Logger
	}

	return &mlog.NoneLogger{}
}

// ContextWithLogger returns a context within a Logger in "logger" value.
func ContextWithLogger(ctx context.Context, logger mlog.Logger) context.Context {
	values, _ := ctx.Value(CustomContextKey).(*CustomContextKeyValue)
	if values == nil {
		values = &CustomContextKeyValue{}
	}

	values.Logger = logger

	return context.WithValue(ctx, CustomContextKey, values)
}

// NewTracerFromContext returns a new tracer from the context.
//
//nolint:ireturn
func NewTracerFromContext(ctx context.Context) trace.Tracer {
	if customContext, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok &&
		customContext.Tracer != nil {
		return customContext.Tracer
	}

	return otel.Tracer("default")
}

// ContextWithTracer returns a context within a trace.Tracer in "tracer" value.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	values, _ := ctx.Value(CustomContextKey).(*CustomContextKeyValue)
	if values == nil {
		values = &CustomContextKeyValue{}
	}

	values.Tracer = tracer

	return context.WithValue(ctx, CustomContextKey, values)
}

// ContextWithCaptureSuppressed returns a context flagged so the change-capture hook skips
// recording the write that runs under it. Scoped to a single context value, never a shared
// toggle, so suppression cannot leak across concurrent requests.
func ContextWithCaptureSuppressed(ctx context.Context, suppressed bool) context.Context {
	values, _ := ctx.Value(CustomContextKey).(*CustomContextKeyValue)
	if values == nil {
		values = &CustomContextKeyValue{}
	}

	values.CaptureSuppressed = suppressed

	return context.WithValue(ctx, CustomContextKey, values)
}

// IsCaptureSuppressed reports whether the context was marked to skip change-capture.
func IsCaptureSuppressed(ctx context.Context) bool {
	if customContext, ok := ctx.Value(CustomContextKey).(*CustomContextKeyValue); ok {
		return customContext.CaptureSuppressed
	}

	return false
}
