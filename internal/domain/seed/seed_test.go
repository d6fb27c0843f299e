package seed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

type fakeChangeLog struct {
	appended []changelog.Entry
}

func (f *fakeChangeLog) Append(_ context.Context, entry *changelog.Entry) error {
	entry.LogId = uuid.New()
	f.appended = append(f.appended, *entry)

	return nil
}

func (f *fakeChangeLog) Upsert(context.Context, *changelog.Entry) (bool, error) {
	return false, nil
}

func (f *fakeChangeLog) After(context.Context, time.Time, int) ([]changelog.Entry, error) {
	return nil, nil
}

func (f *fakeChangeLog) ExistingLogIdsFromSource(context.Context, string, []uuid.UUID) (map[uuid.UUID]bool, error) {
	return nil, nil
}

func (f *fakeChangeLog) MarkSyncedFromSource(context.Context, string) error {
	return nil
}

type fakePhotoReader struct {
	payload map[string]any
}

func (f *fakePhotoReader) ReadPayload(context.Context, string) (map[string]any, error) {
	return f.payload, nil
}

func TestSeedUnknownTableFails(t *testing.T) {
	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	log := &fakeChangeLog{}
	seeder := New(cat, nil, log)

	_, err := seeder.Seed(context.Background(), Request{TableName: "invoices", RecordId: "1"})

	require.Error(t, err)
}

func TestSeedMissingFieldsFails(t *testing.T) {
	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	log := &fakeChangeLog{}
	seeder := New(cat, nil, log)

	_, err := seeder.Seed(context.Background(), Request{})

	require.Error(t, err)
}

func TestSeedPhotoAppendsFreshLogId(t *testing.T) {
	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	reader := &fakePhotoReader{payload: map[string]any{"photoUid": "P_1", "cost": 10}}
	log := &fakeChangeLog{}
	seeder := New(cat, reader, log)

	result, err := seeder.Seed(context.Background(), Request{
		TableName: "photo_data",
		RecordId:  "P_1",
		StoreId:   "central",
		StoreType: "central",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.LogId)
	require.Len(t, log.appended, 1)
	assert.Equal(t, "photo_data", log.appended[0].TableName)
	assert.Equal(t, changelog.ActionUpdate, log.appended[0].Action)
	require.NotNil(t, log.appended[0].Payload)
	assert.Contains(t, *log.appended[0].Payload, "P_1")
}

func TestSeedDefaultsActionToUpdate(t *testing.T) {
	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	reader := &fakePhotoReader{payload: map[string]any{"photoUid": "P_2"}}
	log := &fakeChangeLog{}
	seeder := New(cat, reader, log)

	_, err := seeder.Seed(context.Background(), Request{TableName: "PHOTO_DATA", RecordId: "P_2", Action: ""})

	require.NoError(t, err)
	assert.Equal(t, changelog.ActionUpdate, log.appended[0].Action)
}
