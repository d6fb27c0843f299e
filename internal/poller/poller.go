package poller

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mlog"
	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
	"github.com/mywaytech/dentstage-sync/internal/domain/topology"
	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"
)

// MinInterval is the smallest poll interval the poller accepts, regardless of configuration.
const MinInterval = time.Minute

// DefaultInterval is used when the configured interval is zero or negative.
const DefaultInterval = 60 * time.Minute

// CentralSourceServer identifies the source_server value central-origin change log rows carry,
// used to flag them Synced once applied.
const CentralSourceServer = "central"

// Poller is the central-dispatch poller (C9): a branch-site background task that repeatedly
// calls central's download endpoint and applies whatever comes back. Implements common.App so
// it runs alongside the HTTP server under the same Launcher.
type Poller struct {
	Client    CentralClient
	Cursors   storecursor.Repository
	Applier   *applier.Applier
	ChangeLog changelog.Repository
	DB        dbtx.Beginner

	StoreId    string
	StoreType  string
	ServerRole string
	Role       topology.Role

	Interval time.Duration
	PageSize int
}

// New builds a Poller. role is normalized server role this site reports as; only branch roles
// are allowed to run. db binds the transaction one applied change and the cursor advance that
// accounts for it run under; a nil db runs that sequence without atomicity.
func New(client CentralClient, cursors storecursor.Repository, app *applier.Applier, log changelog.Repository, db dbtx.Beginner, storeId, storeType, serverRole string, interval time.Duration, pageSize int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if interval < MinInterval {
		interval = MinInterval
	}

	return &Poller{
		Client:     client,
		Cursors:    cursors,
		Applier:    app,
		ChangeLog:  log,
		DB:         db,
		StoreId:    storeId,
		StoreType:  storeType,
		ServerRole: serverRole,
		Role:       topology.Normalize(serverRole),
		Interval:   interval,
		PageSize:   pageSize,
	}
}

// Run implements common.App. A central site, or one with an unrecognized role, never polls:
// this is logged once and Run returns nil so the rest of the process keeps running.
func (p *Poller) Run(launcher *common.Launcher) error {
	if p.Role != topology.RoleDirectStore && p.Role != topology.RoleAllianceStore {
		launcher.Logger.Infof("poller: role %q is not a branch, poller disabled", p.ServerRole)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = common.ContextWithLogger(ctx, launcher.Logger)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	launcher.Logger.Infof("poller: started for store %q, polling every %s", p.StoreId, p.Interval)

	for {
		select {
		case <-ctx.Done():
			launcher.Logger.Info("poller: shutting down")
			return nil
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce runs one iteration of the download/apply cycle: download, apply, advance the
// branch's own cursor, and flag any central-origin rows synced. A failure at any step is
// logged and leaves the cursor untouched, so the next tick retries the same window. The apply
// and the cursor advance it accounts for run inside one transaction, so a transient apply
// failure never gets masked by an advanced cursor.
func (p *Poller) pollOnce(ctx context.Context) {
	logger := common.NewLoggerFromContext(ctx)

	cursor, err := p.Cursors.GetOrCreate(ctx, p.StoreId, p.ServerRole)
	if err != nil {
		logger.Warnf("poller: loading cursor for %q: %v", p.StoreId, err)
		return
	}

	lastSyncTime := cursor.LastDownloadTime

	resp, err := p.Client.Download(ctx, DownloadRequest{
		StoreId:      p.StoreId,
		StoreType:    p.StoreType,
		ServerRole:   p.ServerRole,
		PageSize:     p.PageSize,
		LastSyncTime: &lastSyncTime,
	})
	if err != nil {
		logger.Warnf("poller: download failed: %v", err)
		return
	}

	txErr := dbtx.RunInTransaction(ctx, p.DB, func(ctx context.Context) error {
		if resp.Change != nil {
			if ok := p.applyChange(ctx, logger, *resp.Change); !ok {
				return errApplyFailed
			}

			cursor.LastSyncCount = 1
		} else {
			cursor.LastSyncCount = 0
		}

		cursor.LastDownloadTime = resp.ServerTime

		return p.Cursors.Update(ctx, cursor)
	})
	if txErr != nil {
		if !errors.Is(txErr, errApplyFailed) {
			logger.Warnf("poller: updating cursor for %q: %v", p.StoreId, txErr)
		}

		return
	}

	if err := p.ChangeLog.MarkSyncedFromSource(ctx, CentralSourceServer); err != nil {
		logger.Warnf("poller: marking central-origin entries synced: %v", err)
	}
}

// errApplyFailed signals pollOnce's transaction to roll back without an extra log line:
// applyChange already logged the underlying cause.
var errApplyFailed = errors.New("poller: apply failed")

// applyChange suppresses capture for the duration of the apply, mirroring the upload endpoint's
// use of the same context-scoped suppression. It reports whether the cursor is safe to advance
// past this change: a transient apply error must not be masked by advancing the cursor, or the
// failed change is never retried.
func (p *Poller) applyChange(ctx context.Context, logger mlog.Logger, change ChangeDTO) bool {
	suppressedCtx := common.ContextWithCaptureSuppressed(ctx, true)

	var payload *string
	if len(change.Payload) > 0 && string(change.Payload) != "null" {
		s := string(change.Payload)
		payload = &s
	}

	outcome, err := p.Applier.Apply(suppressedCtx, applier.Change{
		TableName: change.TableName,
		RecordId:  change.RecordId,
		Action:    changelog.Action(strings.ToUpper(strings.TrimSpace(change.Action))),
		Payload:   payload,
	})

	if err != nil {
		logger.Warnf("poller: apply failed for %s/%s: %v", change.TableName, change.RecordId, err)
		return false
	}

	if !outcome.Processed {
		logger.Infof("poller: change for %s/%s ignored: %s", change.TableName, change.RecordId, outcome.Reason)
	}

	return true
}
