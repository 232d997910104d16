package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdit/radscribe/internal/models"
)

func pendingItem(sourceID string, recordID int64) *models.WorkItem {
	return &models.WorkItem{
		SourceID:       sourceID,
		SourceRecordID: recordID,
		Status:         models.StatusPending,
		DiscoveredAt:   time.Now().UTC(),
	}
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateIfAbsent(ctx, pendingItem("src", 1))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.CreateIfAbsent(ctx, pendingItem("src", 1))
	require.NoError(t, err)
	assert.False(t, created, "duplicate (source, record) must be absorbed")

	counts, err := m.CountByStatus(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusPending])
}

func TestItemsAreScopedBySource(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateIfAbsent(ctx, pendingItem("a", 1))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.CreateIfAbsent(ctx, pendingItem("b", 1))
	require.NoError(t, err)
	assert.True(t, created, "same record id under another source is a distinct item")
}

func TestListPendingOrderAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		_, err := m.CreateIfAbsent(ctx, pendingItem("src", id))
		require.NoError(t, err)
	}

	items, err := m.ListPending(ctx, "src", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(10), items[0].SourceRecordID)
	assert.Equal(t, int64(20), items[1].SourceRecordID)
}

func TestUpdateUnknownItem(t *testing.T) {
	m := NewMemory()

	err := m.Update(context.Background(), pendingItem("src", 99))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDoesNotAliasCallerValue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	item := pendingItem("src", 1)
	_, err := m.CreateIfAbsent(ctx, item)
	require.NoError(t, err)

	item.Status = models.StatusComplete
	stored, err := m.Get(ctx, "src", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestReset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	failed := pendingItem("src", 1)
	failed.Status = models.StatusFailed
	failed.ErrorMessage = "boom"
	_, err := m.CreateIfAbsent(ctx, failed)
	require.NoError(t, err)

	complete := pendingItem("src", 2)
	complete.Status = models.StatusComplete
	_, err = m.CreateIfAbsent(ctx, complete)
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx, "src", 1))
	got, err := m.Get(ctx, "src", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)

	assert.ErrorIs(t, m.Reset(ctx, "src", 2), ErrNotResettable)
	assert.ErrorIs(t, m.Reset(ctx, "src", 99), ErrNotFound)
}

func TestWatermarkOnlyMovesForward(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	wm, err := m.Watermark(ctx, "src")
	require.NoError(t, err)
	assert.Zero(t, wm.LastSeenID)
	assert.Nil(t, wm.LastPolledAt)

	now := time.Now().UTC()
	require.NoError(t, m.AdvanceWatermark(ctx, "src", 10, now))
	wm, err = m.Watermark(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, int64(10), wm.LastSeenID)
	require.NotNil(t, wm.LastPolledAt)

	// A smaller candidate never winds the watermark back.
	require.NoError(t, m.AdvanceWatermark(ctx, "src", 5, now.Add(time.Minute)))
	wm, err = m.Watermark(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, int64(10), wm.LastSeenID)
}

func TestDoctorProfileLookup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.DoctorProfile(ctx, "dr-1")
	assert.ErrorIs(t, err, ErrNotFound)

	m.PutDoctorProfile(&models.DoctorProfile{
		DoctorID: "dr-1",
		Modalities: map[string]*models.ModalityProfile{
			"US": {Count: 6},
		},
	})

	p, err := m.DoctorProfile(ctx, "dr-1")
	require.NoError(t, err)
	require.NotNil(t, p.Modality("US"))
	assert.Equal(t, 6, p.Modality("US").Count)
	assert.Nil(t, p.Modality("CT"))
}
