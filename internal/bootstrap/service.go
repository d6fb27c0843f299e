package bootstrap

import (
	"context"
	"time"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mlog"
	"github.com/mywaytech/dentstage-sync/common/mmongo"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
	"github.com/mywaytech/dentstage-sync/common/mrabbitmq"
	"github.com/mywaytech/dentstage-sync/common/mredis"
	"github.com/mywaytech/dentstage-sync/common/mzap"

	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/capture"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/photostore"
	"github.com/mywaytech/dentstage-sync/internal/domain/seed"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
	"github.com/mywaytech/dentstage-sync/internal/platform/audit"
	"github.com/mywaytech/dentstage-sync/internal/platform/capturebus"
	"github.com/mywaytech/dentstage-sync/internal/platform/cursorcache"
	"github.com/mywaytech/dentstage-sync/internal/poller"
	"github.com/mywaytech/dentstage-sync/internal/syncapi"
)

// Service is the application glue bundling every running component. Run is the only call a
// binary's main.go needs to make.
type Service struct {
	*Server
	*poller.Poller
	CaptureHook *capture.Hook
	Logger      mlog.Logger
}

// Run starts the HTTP server and the poller under one Launcher, mirroring the teacher's
// single-Launcher-per-process convention.
func (s *Service) Run() {
	common.NewLauncher(
		common.WithLogger(s.Logger),
		common.RunApp("HTTP Service", s.Server),
		common.RunApp("Central Poller", s.Poller),
	).Run()
}

// InitServers builds every connection hub and domain/platform component and assembles the
// running Service. The Postgres connection is dialed and migrated here (pg.GetDB), so
// InitServers blocks on that network I/O; the other hubs dial on first use.
func InitServers() (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := mzap.InitializeLogger()

	telemetry := (&mopentelemetry.Telemetry{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            "",
		DeploymentEnv:             cfg.EnvName,
		CollectorExporterEndpoint: "",
	}).InitializeTelemetry()

	pg := NewPostgresConnection(cfg)

	redisConn := &mredis.RedisConnection{ConnectionStringSource: cfg.redisURL(), Logger: logger}

	mongoConn := &mmongo.MongoConnection{ConnectionStringSource: cfg.MongoURI, Database: cfg.MongoDBName}

	rabbitConn := &mrabbitmq.RabbitMQConnection{ConnectionStringSource: cfg.RabbitMQURI, Logger: logger}

	db, err := pg.GetDB(context.Background())
	if err != nil {
		return nil, err
	}

	cat := catalog.New(db, catalog.DefaultSchemas()...)

	changeLog := changelog.NewPostgresRepository(pg)

	cursorCache := cursorcache.New(redisConn)
	cursors := storecursor.NewPostgresRepository(pg, cursorCache)

	photoFiles := photostore.New(cfg.PhotoStorageRootPath)
	photoRows := photostore.NewRowRepository(db)
	photoApplier := photostore.NewPhotoApplier(photoRows, photoFiles)

	app := applier.New(cat, photoApplier)

	auditTrail := audit.New(mongoConn)

	capturePublisher := capturebus.New(rabbitConn, cfg.StoreId)
	captureHook := capture.New(cfg.StoreId, cfg.StoreType, changeLog, capturePublisher)

	svc := syncapi.New(cat, changeLog, cursors, app, photoApplier, auditTrail, db)
	seeder := seed.New(cat, photoApplier, changeLog)
	handler := syncapi.NewHandler(svc, seeder)

	router := syncapi.NewRouter(logger, telemetry, cfg.SwaggerEnabled, handler)

	server := NewServer(cfg, router, logger, telemetry)

	centralClient := poller.NewHTTPClient(cfg.CentralApiBaseUrl)
	interval := time.Duration(cfg.BackgroundSyncIntervalMinutes) * time.Minute
	pageSize := int(cfg.BackgroundSyncBatchSize)

	p := poller.New(centralClient, cursors, app, changeLog, db, cfg.StoreId, cfg.StoreType, cfg.ServerRole, interval, pageSize)

	return &Service{Server: server, Poller: p, CaptureHook: captureHook, Logger: logger}, nil
}
