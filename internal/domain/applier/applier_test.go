package applier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

type fakePhotoApplier struct {
	upserted []map[string]any
	deleted  []string
}

func (f *fakePhotoApplier) Upsert(_ context.Context, payload map[string]any) error {
	f.upserted = append(f.upserted, payload)
	return nil
}

func (f *fakePhotoApplier) Delete(_ context.Context, photoUID string) error {
	f.deleted = append(f.deleted, photoUID)
	return nil
}

// newTestApplier builds an Applier with no live database connection: every test case here
// exercises either a branch that is rejected (ignored) before the generic catalog path ever
// issues a query, or the photo_data dispatch to the fake photo applier, since a real
// Postgres-backed catalog is out of reach for a unit test.
func newTestApplier() (*Applier, *fakePhotoApplier) {
	cat := catalog.New(nil, catalog.DefaultSchemas()...)
	photo := &fakePhotoApplier{}

	return New(cat, photo), photo
}

func TestApplyMissingTableOrRecordIsIgnored(t *testing.T) {
	a, _ := newTestApplier()

	outcome, err := a.Apply(context.Background(), Change{Action: changelog.ActionUpdate})

	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
}

func TestApplyUnknownTableIsIgnored(t *testing.T) {
	a, _ := newTestApplier()

	payload := `{"x":"y"}`
	outcome, err := a.Apply(context.Background(), Change{
		TableName: "invoices",
		RecordId:  "1",
		Action:    changelog.ActionUpdate,
		Payload:   &payload,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
}

func TestApplyKeyArityMismatchIsIgnored(t *testing.T) {
	a, _ := newTestApplier()

	outcome, err := a.Apply(context.Background(), Change{
		TableName: "vehicles",
		RecordId:  "one,two",
		Action:    changelog.Action("update"),
	})

	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
	assert.Contains(t, outcome.Reason, "vehicles")
}

func TestApplyPhotoDispatchesToPhotoApplier(t *testing.T) {
	a, photo := newTestApplier()

	payload := `{"photoUid":"P_1","cost":50}`
	outcome, err := a.Apply(context.Background(), Change{
		TableName: "photo_data",
		RecordId:  "P_1",
		Action:    changelog.ActionUpsert,
		Payload:   &payload,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Processed)
	require.Len(t, photo.upserted, 1)
	assert.Equal(t, "P_1", photo.upserted[0]["photoUid"])
}

func TestApplyPhotoDeleteDispatchesToPhotoApplier(t *testing.T) {
	a, photo := newTestApplier()

	outcome, err := a.Apply(context.Background(), Change{
		TableName: "PHOTO_DATA",
		RecordId:  "P_2",
		Action:    changelog.ActionDelete,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Processed)
	assert.Equal(t, []string{"P_2"}, photo.deleted)
}

func TestApplyPhotoMissingUIDIsIgnored(t *testing.T) {
	a, photo := newTestApplier()

	payload := `{"cost":50}`
	outcome, err := a.Apply(context.Background(), Change{
		TableName: "photo_data",
		RecordId:  "P_3",
		Action:    changelog.ActionUpsert,
		Payload:   &payload,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
	assert.Empty(t, photo.upserted)
}

func TestApplyNonDeleteWithoutPhotoBinaryStillIgnoredWithoutUID(t *testing.T) {
	a, photo := newTestApplier()

	payload := `{"photoUid":""}`
	outcome, err := a.Apply(context.Background(), Change{
		TableName: "photo_data",
		RecordId:  "P_4",
		Action:    changelog.ActionInsert,
		Payload:   &payload,
	})

	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
	assert.Empty(t, photo.upserted)
}
