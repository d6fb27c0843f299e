package syncapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mywaytech/dentstage-sync/common"
	cn "github.com/mywaytech/dentstage-sync/common/constant"
	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
	"github.com/mywaytech/dentstage-sync/internal/platform/audit"
	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"
)

// clockSkewTolerance is how far before server time the effective cursor is placed when the
// cursor in effect (stored or requester-supplied LastSyncTime) is ahead of server time.
const clockSkewTolerance = 10 * time.Minute

// defaultPageSize bounds the candidate window scanned by Download when the caller does not
// specify one.
const defaultPageSize = 50

// PhotoPayloadReader materializes a photo row's payload for Download step 5, implemented by
// photostore.PhotoApplier.
type PhotoPayloadReader interface {
	ReadPayload(ctx context.Context, photoUID string) (map[string]any, error)
}

// Service implements the upload endpoint (C7) and download endpoint (C8) independent of any
// HTTP framework, so the endpoint algorithms can be driven directly from tests.
type Service struct {
	Catalog     *catalog.Catalog
	ChangeLog   changelog.Repository
	Cursors     storecursor.Repository
	Applier     *applier.Applier
	PhotoReader PhotoPayloadReader
	Audit       *audit.Trail
	DB          dbtx.Beginner
	Now         func() time.Time
}

// New builds a Service. Audit may be left nil to disable the audit trail. db binds the
// transaction the upload path runs its apply/log/cursor sequence under; a nil db runs that
// sequence without atomicity, which is what the unit tests below exercise.
func New(cat *catalog.Catalog, log changelog.Repository, cursors storecursor.Repository, app *applier.Applier, photoReader PhotoPayloadReader, trail *audit.Trail, db dbtx.Beginner) *Service {
	return &Service{
		Catalog:     cat,
		ChangeLog:   log,
		Cursors:     cursors,
		Applier:     app,
		PhotoReader: photoReader,
		Audit:       trail,
		DB:          db,
		Now:         time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

// Upload implements the upload endpoint's seven-step algorithm. An envelope-invalid request is
// the only path allowed to surface a non-200 response, with no side effects.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	if req.StoreId == "" {
		return UploadResponse{}, common.ValidateBusinessError(cn.ErrMissingStoreID, "UploadRequest")
	}

	if req.StoreType == "" {
		return UploadResponse{}, common.ValidateBusinessError(cn.ErrMissingStoreType, "UploadRequest")
	}

	cursor, err := s.Cursors.GetOrCreate(ctx, req.StoreId, req.ServerRole)
	if err != nil {
		return UploadResponse{}, err
	}

	if req.ServerRole != "" {
		cursor.ServerRole = req.ServerRole
	}

	if req.ServerIp != "" {
		cursor.ServerIp = req.ServerIp
	}

	now := s.now()

	if req.Change == nil {
		cursor.LastUploadTime = now
		cursor.LastSyncCount = 0

		return UploadResponse{}, s.Cursors.Update(ctx, cursor)
	}

	logger := common.NewLoggerFromContext(ctx)

	var (
		outcome  applier.Outcome
		applyErr error
	)

	processed, ignored := 0, 0

	// The apply, the log entry, and the cursor advance are one atomic unit: either all three
	// persist or none do, so a crash mid-upload never leaves the cursor ahead of the log.
	txErr := dbtx.RunInTransaction(ctx, s.DB, func(ctx context.Context) error {
		suppressedCtx := common.ContextWithCaptureSuppressed(ctx, true)

		outcome, applyErr = s.Applier.Apply(suppressedCtx, applier.Change{
			TableName: req.Change.TableName,
			RecordId:  req.Change.RecordId,
			Action:    changelog.Action(strings.ToUpper(strings.TrimSpace(req.Change.Action))),
			Payload:   req.Change.payloadString(),
		})

		switch {
		case applyErr != nil:
			logger.Warnf("upload: apply failed for %s/%s: %v", req.Change.TableName, req.Change.RecordId, applyErr)
			ignored = 1
		case outcome.Processed:
			processed = 1
		default:
			logger.Infof("upload: change for %s/%s ignored: %s", req.Change.TableName, req.Change.RecordId, outcome.Reason)
			ignored = 1
		}

		if err := s.persistUploadedEntry(ctx, req, now); err != nil {
			return err
		}

		cursor.LastUploadTime = now
		cursor.LastSyncCount = processed

		return s.Cursors.Update(ctx, cursor)
	})
	if txErr != nil {
		return UploadResponse{}, txErr
	}

	if s.Audit != nil {
		auditOutcome := audit.OutcomeProcessed
		reason := ""

		if ignored == 1 {
			auditOutcome = audit.OutcomeIgnored
			reason = outcome.Reason

			if applyErr != nil {
				reason = applyErr.Error()
			}
		}

		s.Audit.Record(ctx, audit.Entry{
			TableName:    req.Change.TableName,
			RecordId:     req.Change.RecordId,
			Action:       req.Change.Action,
			SourceServer: req.StoreId,
			AppliedAt:    now,
			Outcome:      auditOutcome,
			Reason:       reason,
		})
	}

	return UploadResponse{Processed: processed, Ignored: ignored}, nil
}

// persistUploadedEntry implements the upload endpoint's log-persistence step: update-in-place
// on LogId collision, insert with a caller-attributed source otherwise.
func (s *Service) persistUploadedEntry(ctx context.Context, req UploadRequest, now time.Time) error {
	change := req.Change

	entry := changelog.Entry{
		TableName:    change.TableName,
		RecordId:     change.RecordId,
		Action:       changelog.Action(strings.ToUpper(strings.TrimSpace(change.Action))),
		SourceServer: req.StoreId,
		StoreType:    req.StoreType,
		Synced:       true,
		Payload:      change.payloadString(),
	}

	if change.SyncedAt != nil {
		entry.SyncedAt = *change.SyncedAt
	} else {
		entry.SyncedAt = now
	}

	if change.UpdatedAt != nil {
		entry.UpdatedAt = *change.UpdatedAt
	} else {
		entry.UpdatedAt = entry.SyncedAt
	}

	if err := changelog.ValidatePayloadAgainstAction(entry, s.deserializeForValidation); err != nil {
		return err
	}

	if change.LogId != nil {
		entry.LogId = *change.LogId
		_, err := s.ChangeLog.Upsert(ctx, &entry)

		return err
	}

	return s.ChangeLog.Append(ctx, &entry)
}

// deserializeForValidation checks that payload is at least well-formed JSON against tableName's
// catalog schema, satisfying changelog.ValidatePayloadAgainstAction's deserialize hook. photo_data
// and tables the catalog does not recognize fall back to a bare JSON-object check, mirroring how
// materializePayload treats them as outside the generic catalog's schema enforcement.
func (s *Service) deserializeForValidation(tableName, payload string) error {
	if s.Catalog == nil || strings.EqualFold(tableName, applier.PhotoTable) {
		var row map[string]any
		return json.Unmarshal([]byte(payload), &row)
	}

	schema, ok := s.Catalog.Resolve(tableName)
	if !ok {
		var row map[string]any
		return json.Unmarshal([]byte(payload), &row)
	}

	_, err := catalog.Deserialize(schema, payload)

	return err
}

// Download implements the download endpoint's algorithm, including the loop-avoidance walk and
// the clock-skew backward tolerance.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (DownloadResponse, error) {
	if req.StoreId == "" {
		return DownloadResponse{}, common.ValidateBusinessError(cn.ErrMissingStoreID, "DownloadRequest")
	}

	if req.StoreType == "" {
		return DownloadResponse{}, common.ValidateBusinessError(cn.ErrMissingStoreType, "DownloadRequest")
	}

	cursor, err := s.Cursors.GetOrCreate(ctx, req.StoreId, req.ServerRole)
	if err != nil {
		return DownloadResponse{}, err
	}

	now := s.now()

	effectiveCursor := cursor.LastDownloadTime
	if req.LastSyncTime != nil {
		effectiveCursor = *req.LastSyncTime
	}

	if effectiveCursor.After(now) {
		effectiveCursor = now.Add(-clockSkewTolerance)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	candidates, err := s.ChangeLog.After(ctx, effectiveCursor, pageSize)
	if err != nil {
		return DownloadResponse{}, err
	}

	response := DownloadResponse{
		StoreId:   req.StoreId,
		StoreType: req.StoreType,
		Orders:    []OrderProjection{},
	}

	if len(candidates) == 0 {
		response.ServerTime = now

		return response, nil
	}

	candidateLogIds := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		candidateLogIds[i] = c.LogId
	}

	existing, err := s.ChangeLog.ExistingLogIdsFromSource(ctx, req.StoreId, candidateLogIds)
	if err != nil {
		return DownloadResponse{}, err
	}

	selected, found := selectNext(candidates, existing, req.StoreId)

	if found {
		if err := s.materializePayload(ctx, &selected); err != nil {
			return DownloadResponse{}, err
		}

		response.Change = toChangeDTO(selected)
		response.ServerTime = now

		if err := s.appendOrderProjection(&response, selected); err != nil {
			return DownloadResponse{}, err
		}

		cursor.LastDownloadTime = earlier(selected.SyncedAt, now)
		cursor.LastSyncCount = 1
	} else {
		// No entry qualified, but candidates existed: advance past them anyway to avoid
		// re-scanning the same window on the next poll.
		cursor.LastDownloadTime = candidates[len(candidates)-1].SyncedAt
		cursor.LastSyncCount = 0
		response.ServerTime = now
	}

	if err := s.Cursors.Update(ctx, cursor); err != nil {
		return DownloadResponse{}, err
	}

	return response, nil
}

// selectNext returns the first candidate not already recorded locally from the requester, and
// not originated by the requester.
func selectNext(candidates []changelog.Entry, existing map[uuid.UUID]bool, storeId string) (changelog.Entry, bool) {
	for _, c := range candidates {
		if existing[c.LogId] {
			continue
		}

		if c.SourceServer == storeId {
			continue
		}

		return c, true
	}

	return changelog.Entry{}, false
}

// materializePayload reconstructs Payload when the log row didn't carry one, via the photo
// store for photo_data or via the catalog for everything else.
func (s *Service) materializePayload(ctx context.Context, entry *changelog.Entry) error {
	if entry.Payload != nil {
		return nil
	}

	if strings.EqualFold(entry.TableName, applier.PhotoTable) {
		if s.PhotoReader == nil {
			return nil
		}

		row, err := s.PhotoReader.ReadPayload(ctx, entry.RecordId)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(row)
		if err != nil {
			return err
		}

		payloadStr := string(payload)
		entry.Payload = &payloadStr

		return nil
	}

	schema, ok := s.Catalog.Resolve(entry.TableName)
	if !ok {
		return nil
	}

	tuple, err := s.Catalog.ParseKey(schema, entry.RecordId)
	if err != nil {
		return nil
	}

	row, found, err := s.Catalog.FindByKey(ctx, schema, tuple)
	if err != nil {
		return err
	}

	if !found {
		return nil
	}

	payload, err := catalog.Serialize(row)
	if err != nil {
		return err
	}

	entry.Payload = &payload

	return nil
}

// appendOrderProjection implements the legacy orders compatibility shim.
func (s *Service) appendOrderProjection(response *DownloadResponse, selected changelog.Entry) error {
	if selected.Action == changelog.ActionDelete || !strings.EqualFold(selected.TableName, "orders") || selected.Payload == nil {
		return nil
	}

	var projection OrderProjection
	if err := json.Unmarshal([]byte(*selected.Payload), &projection); err != nil {
		return fmt.Errorf("syncapi: failed to project order payload: %w", err)
	}

	response.Orders = append(response.Orders, projection)

	return nil
}

func toChangeDTO(entry changelog.Entry) *ChangeDTO {
	logId := entry.LogId
	updatedAt := entry.UpdatedAt
	syncedAt := entry.SyncedAt

	var payload json.RawMessage
	if entry.Payload != nil {
		payload = json.RawMessage(*entry.Payload)
	}

	return &ChangeDTO{
		LogId:     &logId,
		TableName: entry.TableName,
		RecordId:  entry.RecordId,
		Action:    string(entry.Action),
		UpdatedAt: &updatedAt,
		SyncedAt:  &syncedAt,
		Payload:   payload,
	}
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}
