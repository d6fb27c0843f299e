package capture

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

type fakeRepo struct {
	appended []*changelog.Entry
}

func (f *fakeRepo) Append(_ context.Context, entry *changelog.Entry) error {
	entry.LogId = uuid.New()
	f.appended = append(f.appended, entry)

	return nil
}

func (f *fakeRepo) Upsert(context.Context, *changelog.Entry) (bool, error) { return false, nil }
func (f *fakeRepo) After(context.Context, time.Time, int) ([]changelog.Entry, error) {
	return nil, nil
}
func (f *fakeRepo) ExistingLogIdsFromSource(context.Context, string, []uuid.UUID) (map[uuid.UUID]bool, error) {
	return nil, nil
}
func (f *fakeRepo) MarkSyncedFromSource(context.Context, string) error { return nil }

type countingPublisher struct{ calls int }

func (c *countingPublisher) Publish(context.Context, string, string, changelog.Action) error {
	c.calls++
	return nil
}

func TestCaptureAppendsAndPublishesWhenNotSuppressed(t *testing.T) {
	repo := &fakeRepo{}
	pub := &countingPublisher{}
	h := New("B1", "direct", repo, pub)

	payload := `{"order_uid":"O_1"}`
	captured, err := h.Capture(context.Background(), "orders", "O_1", changelog.ActionUpdate, &payload)

	require.NoError(t, err)
	assert.True(t, captured)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, "B1", repo.appended[0].SourceServer)
	assert.Equal(t, "direct", repo.appended[0].StoreType)
	assert.Equal(t, 1, pub.calls)
}

func TestCaptureSkippedWhenSuppressed(t *testing.T) {
	repo := &fakeRepo{}
	pub := &countingPublisher{}
	h := New("B1", "direct", repo, pub)

	ctx := common.ContextWithCaptureSuppressed(context.Background(), true)

	captured, err := h.Capture(ctx, "orders", "O_1", changelog.ActionUpdate, nil)

	require.NoError(t, err)
	assert.False(t, captured)
	assert.Empty(t, repo.appended)
	assert.Zero(t, pub.calls)
}

func TestCapturePublishFailureDoesNotFailAppend(t *testing.T) {
	repo := &fakeRepo{}
	h := New("B1", "direct", repo, failingPublisher{})

	captured, err := h.Capture(context.Background(), "orders", "O_1", changelog.ActionDelete, nil)

	require.NoError(t, err)
	assert.True(t, captured)
	assert.Len(t, repo.appended, 1)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, string, changelog.Action) error {
	return assert.AnError
}
