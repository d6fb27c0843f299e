package http

import (
	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type TelemetryMiddleware struct {
	*mopentelemetry.Telemetry
}

// NewTelemetryMiddleware creates a new instance of TelemetryMiddleware.
func NewTelemetryMiddleware(tl *mopentelemetry.Telemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{tl}
}

// WithTelemetry is a middleware that starts a tracing span for the request and attaches
// the tracer to the request context.
func (tm *TelemetryMiddleware) WithTelemetry(tl *mopentelemetry.Telemetry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tracer := otel.Tracer(tl.LibraryName)
		ctx := common.ContextWithTracer(c.UserContext(), tracer)

		ctx, span := tracer.Start(ctx, c.Method()+" "+common.ReplaceUUIDWithPlaceholder(c.Path()))
		defer span.End()

		c.SetUserContext(ctx)

		return c.Next()
	}
}

// EndTracingSpans is a middleware that ends the tracing spans.
func (tm *TelemetryMiddleware) EndTracingSpans(c *fiber.Ctx) error {
	err := c.Next()

	go func() {
		trace.SpanFromContext(c.UserContext()).End()
	}()

	return err
}
