// Package capture implements the change-capture hook (C4): it intercepts local row writes and
// synthesizes change-log entries attributed to this site, unless suppressed. Suppression is a
// per-operation context flag (see common.ContextWithCaptureSuppressed), never a shared toggle,
// so concurrent HTTP handlers serving different branches never suppress each other's writes.
package capture

import (
	"context"
	"time"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

// EventPublisher is A5's contract from this package's point of view: a best-effort fan-out of
// capture events, invoked only when a capture is not suppressed. A publish failure must never
// block the local write or the change-log append — the change log is the durable source of
// truth, the bus is a convenience side-channel.
type EventPublisher interface {
	Publish(ctx context.Context, tableName, recordID string, action changelog.Action) error
}

// NoopPublisher is used where no event bus is configured.
type NoopPublisher struct{}

// Publish implements EventPublisher by doing nothing.
func (NoopPublisher) Publish(context.Context, string, string, changelog.Action) error { return nil }

// Hook is the change-capture hook bound to this site's identity.
type Hook struct {
	SourceServer string
	StoreType    string
	Log          changelog.Repository
	Bus          EventPublisher
}

// New builds a Hook. bus may be nil, in which case captured events are never published (only
// appended to the change log).
func New(sourceServer, storeType string, log changelog.Repository, bus EventPublisher) *Hook {
	if bus == nil {
		bus = NoopPublisher{}
	}

	return &Hook{SourceServer: sourceServer, StoreType: storeType, Log: log, Bus: bus}
}

// Capture synthesizes and appends a change-log entry for a local write, unless ctx is
// capture-suppressed. payload is nil for DELETE. Returns (false, nil) when suppressed — this is
// not an error, it is the expected no-op path while a replication apply is in flight.
func (h *Hook) Capture(ctx context.Context, tableName, recordID string, action changelog.Action, payload *string) (bool, error) {
	if common.IsCaptureSuppressed(ctx) {
		return false, nil
	}

	now := time.Now().UTC()

	entry := &changelog.Entry{
		TableName:    tableName,
		RecordId:     recordID,
		Action:       action,
		UpdatedAt:    now,
		SyncedAt:     now,
		SourceServer: h.SourceServer,
		StoreType:    h.StoreType,
		Synced:       false,
		Payload:      payload,
	}

	if err := h.Log.Append(ctx, entry); err != nil {
		return false, err
	}

	// Best-effort: a publish failure never rolls back the append or surfaces to the caller.
	if err := h.Bus.Publish(ctx, tableName, recordID, action); err != nil {
		logger := common.NewLoggerFromContext(ctx)
		logger.Warnf("capture: event bus publish failed for %s/%s: %v", tableName, recordID, err)
	}

	return true, nil
}
