package bootstrap

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mlog"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
)

// Server runs the HTTP surface (A6) under the shared Launcher.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
	telemetry     *mopentelemetry.Telemetry
}

// NewServer builds a Server.
func NewServer(cfg *Config, app *fiber.App, logger mlog.Logger, telemetry *mopentelemetry.Telemetry) *Server {
	return &Server{app: app, serverAddress: cfg.ServerAddress, logger: logger, telemetry: telemetry}
}

// Run implements common.App.
func (s *Server) Run(l *common.Launcher) error {
	defer s.telemetry.ShutdownTelemetry()

	defer func() {
		if err := s.logger.Sync(); err != nil {
			s.logger.Warnf("server: failed to sync logger: %s", err)
		}
	}()

	if err := s.app.Listen(s.serverAddress); err != nil {
		return errors.Wrap(err, "server: failed to run the http server")
	}

	return nil
}
