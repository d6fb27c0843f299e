package poller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mlog"
	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
)

type fakeClient struct {
	resp DownloadResponse
	err  error
	reqs []DownloadRequest
}

func (f *fakeClient) Download(_ context.Context, req DownloadRequest) (DownloadResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeCursors struct {
	cursor storecursor.Cursor
}

func (f *fakeCursors) GetOrCreate(_ context.Context, storeId, role string) (storecursor.Cursor, error) {
	if f.cursor.StoreId == "" {
		f.cursor = storecursor.Cursor{StoreId: storeId, Role: role}
	}

	return f.cursor, nil
}

func (f *fakeCursors) Update(_ context.Context, cursor storecursor.Cursor) error {
	f.cursor = cursor
	return nil
}

type fakeChangeLog struct {
	markedSyncedFrom []string
}

func (f *fakeChangeLog) Append(context.Context, *changelog.Entry) error { return nil }
func (f *fakeChangeLog) Upsert(context.Context, *changelog.Entry) (bool, error) {
	return false, nil
}
func (f *fakeChangeLog) After(context.Context, time.Time, int) ([]changelog.Entry, error) {
	return nil, nil
}
func (f *fakeChangeLog) ExistingLogIdsFromSource(context.Context, string, []uuid.UUID) (map[uuid.UUID]bool, error) {
	return nil, nil
}
func (f *fakeChangeLog) MarkSyncedFromSource(_ context.Context, sourceServer string) error {
	f.markedSyncedFrom = append(f.markedSyncedFrom, sourceServer)
	return nil
}

type fakePhotoApplier struct{ err error }

func (f fakePhotoApplier) Upsert(context.Context, map[string]any) error { return f.err }
func (f fakePhotoApplier) Delete(context.Context, string) error         { return f.err }

func newTestPoller(t *testing.T, client CentralClient) (*Poller, *fakeCursors, *fakeChangeLog) {
	t.Helper()

	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	app := applier.New(cat, fakePhotoApplier{})
	cursors := &fakeCursors{}
	log := &fakeChangeLog{}

	p := New(client, cursors, app, log, nil, "store-1", "direct store", "direct store", time.Hour, 10)

	return p, cursors, log
}

func TestRunSkipsPollingForCentralRole(t *testing.T) {
	client := &fakeClient{}
	p, _, _ := newTestPoller(t, client)
	p.Role = "central"

	err := p.Run(testLauncher())

	require.NoError(t, err)
	assert.Empty(t, client.reqs)
}

func TestPollOnceAppliesReturnedChangeAndAdvancesCursor(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{resp: DownloadResponse{
		StoreId:    "store-1",
		StoreType:  "direct store",
		ServerTime: now,
		Change: &ChangeDTO{
			TableName: "photo_data",
			RecordId:  "P1",
			Action:    "UPSERT",
			Payload:   json.RawMessage(`{"photoUid":"P1"}`),
		},
	}}

	p, cursors, log := newTestPoller(t, client)

	ctx := contextWithTestLogger()

	p.pollOnce(ctx)

	assert.Equal(t, now, cursors.cursor.LastDownloadTime)
	assert.Equal(t, 1, cursors.cursor.LastSyncCount)
	assert.Equal(t, []string{CentralSourceServer}, log.markedSyncedFrom)
	require.Len(t, client.reqs, 1)
	assert.Equal(t, "store-1", client.reqs[0].StoreId)
}

func TestPollOnceWithNoChangeStillAdvancesCursor(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 30, 0, 0, time.UTC)

	client := &fakeClient{resp: DownloadResponse{StoreId: "store-1", StoreType: "direct store", ServerTime: now}}

	p, cursors, _ := newTestPoller(t, client)

	p.pollOnce(contextWithTestLogger())

	assert.Equal(t, now, cursors.cursor.LastDownloadTime)
	assert.Equal(t, 0, cursors.cursor.LastSyncCount)
}

func TestPollOnceLeavesCursorUntouchedOnDownloadFailure(t *testing.T) {
	client := &fakeClient{err: assertError{"central unreachable"}}

	p, cursors, _ := newTestPoller(t, client)

	p.pollOnce(contextWithTestLogger())

	assert.True(t, cursors.cursor.LastDownloadTime.IsZero())
}

func TestPollOnceLeavesCursorUntouchedOnApplyFailure(t *testing.T) {
	now := time.Date(2026, 7, 30, 13, 0, 0, 0, time.UTC)

	client := &fakeClient{resp: DownloadResponse{
		StoreId:    "store-1",
		StoreType:  "direct store",
		ServerTime: now,
		Change: &ChangeDTO{
			TableName: "photo_data",
			RecordId:  "P1",
			Action:    "UPSERT",
			Payload:   json.RawMessage(`{"photoUid":"P1"}`),
		},
	}}

	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	app := applier.New(cat, fakePhotoApplier{err: assertError{"disk full"}})
	cursors := &fakeCursors{}
	log := &fakeChangeLog{}

	p := New(client, cursors, app, log, nil, "store-1", "direct store", "direct store", time.Hour, 10)

	p.pollOnce(contextWithTestLogger())

	assert.True(t, cursors.cursor.LastDownloadTime.IsZero(), "cursor must not advance past an unapplied change")
	assert.Empty(t, log.markedSyncedFrom, "central-origin entries must not be marked synced when apply failed")
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func testLauncher() *common.Launcher {
	return common.NewLauncher(common.WithLogger(&mlog.NoneLogger{}))
}

func contextWithTestLogger() context.Context {
	return common.ContextWithLogger(context.Background(), &mlog.NoneLogger{})
}
