package syncapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"github.com/mywaytech/dentstage-sync/common/mlog"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
	sthttp "github.com/mywaytech/dentstage-sync/common/net/http"
)

// Version is set by cmd/syncd at build time via -ldflags, surfaced on GET /version.
var Version = "dev"

// NewRouter assembles the HTTP surface (A6): the replication contract's two store-facing
// endpoints, the admin-only seed endpoint, and the ambient health/version/docs routes.
func NewRouter(logger mlog.Logger, telemetry *mopentelemetry.Telemetry, swaggerEnabled bool, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	tlMid := sthttp.NewTelemetryMiddleware(telemetry)

	app.Use(recover.New())
	app.Use(sthttp.WithCorrelationID())
	app.Use(tlMid.WithTelemetry(telemetry))
	sthttp.AllowFullOptionsWithCORS(app)
	app.Use(sthttp.WithHTTPLogging(sthttp.WithCustomLogger(logger)))

	app.Post("/api/sync/upload", sthttp.WithBody(new(UploadRequest), h.Upload))
	app.Get("/api/sync/changes", h.Changes)
	app.Post("/api/sync/seed", sthttp.WithBody(new(SeedRequest), h.Seed))

	app.Get("/health", sthttp.Ping)
	app.Get("/version", sthttp.Version(Version))

	if swaggerEnabled {
		app.Get("/swagger/*", fiberSwagger.WrapHandler)
	}

	return app
}
