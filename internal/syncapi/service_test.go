package syncapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
)

type fakeChangeLog struct {
	appended   []changelog.Entry
	upserted   []changelog.Entry
	entries    []changelog.Entry
	existingBy map[uuid.UUID]bool
}

func (f *fakeChangeLog) Append(_ context.Context, entry *changelog.Entry) error {
	entry.LogId = uuid.New()
	f.appended = append(f.appended, *entry)

	return nil
}

func (f *fakeChangeLog) Upsert(_ context.Context, entry *changelog.Entry) (bool, error) {
	f.upserted = append(f.upserted, *entry)
	return false, nil
}

func (f *fakeChangeLog) After(_ context.Context, since time.Time, limit int) ([]changelog.Entry, error) {
	var out []changelog.Entry

	for _, e := range f.entries {
		if e.SyncedAt.After(since) {
			out = append(out, e)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (f *fakeChangeLog) ExistingLogIdsFromSource(context.Context, string, []uuid.UUID) (map[uuid.UUID]bool, error) {
	if f.existingBy == nil {
		return map[uuid.UUID]bool{}, nil
	}

	return f.existingBy, nil
}

func (f *fakeChangeLog) MarkSyncedFromSource(context.Context, string) error {
	return nil
}

type fakeCursors struct {
	cursors map[string]storecursor.Cursor
	updated []storecursor.Cursor
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{cursors: map[string]storecursor.Cursor{}}
}

func (f *fakeCursors) GetOrCreate(_ context.Context, storeId, role string) (storecursor.Cursor, error) {
	if c, ok := f.cursors[storeId]; ok {
		return c, nil
	}

	c := storecursor.Cursor{StoreId: storeId, Role: role}
	f.cursors[storeId] = c

	return c, nil
}

func (f *fakeCursors) Update(_ context.Context, cursor storecursor.Cursor) error {
	f.cursors[cursor.StoreId] = cursor
	f.updated = append(f.updated, cursor)

	return nil
}

type fakePhotoApplier struct{}

func (fakePhotoApplier) Upsert(context.Context, map[string]any) error { return nil }
func (fakePhotoApplier) Delete(context.Context, string) error         { return nil }

func newTestService(t *testing.T) (*Service, *fakeChangeLog, *fakeCursors) {
	t.Helper()

	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	app := applier.New(cat, fakePhotoApplier{})
	log := &fakeChangeLog{}
	cursors := newFakeCursors()

	svc := New(cat, log, cursors, app, nil, nil, nil)
	svc.Now = func() time.Time { return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) }

	return svc, log, cursors
}

func TestUploadMissingStoreIdIsValidationError(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), UploadRequest{StoreType: "branch"})

	require.Error(t, err)
}

func TestUploadWithoutChangeUpdatesCursorOnly(t *testing.T) {
	svc, log, cursors := newTestService(t)

	resp, err := svc.Upload(context.Background(), UploadRequest{StoreId: "store-1", StoreType: "branch"})

	require.NoError(t, err)
	assert.Equal(t, UploadResponse{}, resp)
	assert.Empty(t, log.appended)
	assert.Equal(t, svc.now(), cursors.cursors["store-1"].LastUploadTime)
}

func TestUploadAppliesUnknownTableIgnoredButStillLogged(t *testing.T) {
	svc, log, cursors := newTestService(t)

	payload := `{"x":"y"}`
	resp, err := svc.Upload(context.Background(), UploadRequest{
		StoreId:   "store-1",
		StoreType: "branch",
		Change: &ChangeDTO{
			TableName: "invoices",
			RecordId:  "1",
			Action:    "UPDATE",
			Payload:   json.RawMessage(payload),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, UploadResponse{Processed: 0, Ignored: 1}, resp)
	require.Len(t, log.appended, 1)
	assert.Equal(t, "store-1", log.appended[0].SourceServer)
	assert.Equal(t, 0, cursors.cursors["store-1"].LastSyncCount)
}

func TestUploadPhotoProcessedAndPersistedWithSuppliedLogId(t *testing.T) {
	svc, log, _ := newTestService(t)

	logId := uuid.New()
	payload := `{"photoUid":"P_1"}`

	resp, err := svc.Upload(context.Background(), UploadRequest{
		StoreId:   "store-1",
		StoreType: "branch",
		Change: &ChangeDTO{
			LogId:     &logId,
			TableName: "photo_data",
			RecordId:  "P_1",
			Action:    "upsert",
			Payload:   json.RawMessage(payload),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, UploadResponse{Processed: 1, Ignored: 0}, resp)
	assert.Empty(t, log.appended)
	require.Len(t, log.upserted, 1)
	assert.Equal(t, logId, log.upserted[0].LogId)
}

func TestDownloadNoCandidatesReturnsEmptyChange(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Download(context.Background(), DownloadRequest{StoreId: "store-1", StoreType: "branch"})

	require.NoError(t, err)
	assert.Nil(t, resp.Change)
	assert.Empty(t, resp.Orders)
}

func TestDownloadSkipsEntryFromRequesterAndAlreadyExisting(t *testing.T) {
	svc, log, cursors := newTestService(t)

	origin := uuid.New()
	other := uuid.New()

	base := time.Date(2026, 7, 30, 11, 0, 0, 0, time.UTC)

	log.entries = []changelog.Entry{
		{LogId: origin, TableName: "customers", RecordId: "C1", Action: changelog.ActionUpdate, SourceServer: "store-1", SyncedAt: base.Add(time.Minute), Payload: strPtr(`{"customerUid":"C1"}`)},
		{LogId: other, TableName: "customers", RecordId: "C2", Action: changelog.ActionUpdate, SourceServer: "central", SyncedAt: base.Add(2 * time.Minute), Payload: strPtr(`{"customerUid":"C2"}`)},
	}
	log.existingBy = map[uuid.UUID]bool{}

	resp, err := svc.Download(context.Background(), DownloadRequest{StoreId: "store-1", StoreType: "branch"})

	require.NoError(t, err)
	require.NotNil(t, resp.Change)
	assert.Equal(t, "C2", resp.Change.RecordId)
	assert.Equal(t, 1, cursors.cursors["store-1"].LastSyncCount)
}

func TestDownloadAdvancesCursorEvenWhenNoneSelected(t *testing.T) {
	svc, log, cursors := newTestService(t)

	only := uuid.New()
	base := time.Date(2026, 7, 30, 11, 0, 0, 0, time.UTC)

	log.entries = []changelog.Entry{
		{LogId: only, TableName: "customers", RecordId: "C1", Action: changelog.ActionUpdate, SourceServer: "store-1", SyncedAt: base.Add(time.Minute)},
	}
	log.existingBy = map[uuid.UUID]bool{}

	resp, err := svc.Download(context.Background(), DownloadRequest{StoreId: "store-1", StoreType: "branch"})

	require.NoError(t, err)
	assert.Nil(t, resp.Change)
	assert.Equal(t, base.Add(time.Minute), cursors.cursors["store-1"].LastDownloadTime)
	assert.Equal(t, 0, cursors.cursors["store-1"].LastSyncCount)
}

func TestDownloadProjectsOrdersForNonDeleteOrdersChange(t *testing.T) {
	svc, log, _ := newTestService(t)

	base := time.Date(2026, 7, 30, 11, 0, 0, 0, time.UTC)

	log.entries = []changelog.Entry{
		{LogId: uuid.New(), TableName: "orders", RecordId: "O1", Action: changelog.ActionUpdate, SourceServer: "central", SyncedAt: base, Payload: strPtr(`{"orderUid":"O1"}`)},
	}
	log.existingBy = map[uuid.UUID]bool{}

	resp, err := svc.Download(context.Background(), DownloadRequest{StoreId: "store-1", StoreType: "branch"})

	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "O1", resp.Orders[0]["orderUid"])
}

func TestDownloadClockSkewRewindsEffectiveCursor(t *testing.T) {
	svc, log, _ := newTestService(t)

	future := svc.now().Add(time.Hour)

	log.entries = []changelog.Entry{
		{LogId: uuid.New(), TableName: "customers", RecordId: "C9", Action: changelog.ActionUpdate, SourceServer: "central", SyncedAt: svc.now().Add(-5 * time.Minute), Payload: strPtr(`{"customerUid":"C9"}`)},
	}
	log.existingBy = map[uuid.UUID]bool{}

	resp, err := svc.Download(context.Background(), DownloadRequest{StoreId: "store-1", StoreType: "branch", LastSyncTime: &future})

	require.NoError(t, err)
	require.NotNil(t, resp.Change)
	assert.Equal(t, "C9", resp.Change.RecordId)
}

func strPtr(s string) *string { return &s }
