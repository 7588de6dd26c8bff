package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-waitlist/internal/clock"
	"event-waitlist/internal/models"
	"event-waitlist/internal/scheduler"
)

// Offers made by the allocator are expired by the worker through the SQLite
// job store, and the freed spot moves down the queue.
func TestOfferExpiry_ThroughDurableScheduler(t *testing.T) {
	ctx := context.Background()

	jobStore, err := scheduler.Open(ctx, filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = jobStore.Close()
	})

	clk := clock.NewManual(testNow)
	store := newFakeStore()
	entries := fakeWaitingList{store}

	availability := NewAvailabilityService(fakeEvents{store}, fakeTickets{store}, entries, store, clk)
	allocator := NewOfferAllocator(entries, availability, scheduler.New(jobStore, clk), clk, testWindow)
	expiry := NewOfferExpiryHandler(entries, scheduler.New(jobStore, clk), allocator, clk)

	worker := scheduler.NewWorker(jobStore, clk, scheduler.WorkerConfig{Owner: "test-worker"})
	worker.Register(ExpireOfferJob, expiry.HandleJob)

	event := store.addEvent(1)
	first := store.addEntry(event.ID, "U1", models.WaitingListWaiting, nil)
	second := store.addEntry(event.ID, "U2", models.WaitingListWaiting, nil)

	offered, err := allocator.ProcessQueue(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 1, offered)
	assert.Equal(t, models.WaitingListOffered, store.entry(first.ID).Status)

	n, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expiry job is not due before the offer window ends")

	clk.Advance(testWindow)
	n, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, models.WaitingListExpired, store.entry(first.ID).Status)
	assert.Nil(t, store.entry(first.ID).OfferExpiresAt)
	got := store.entry(second.ID)
	assert.Equal(t, models.WaitingListOffered, got.Status)
	if assert.NotNil(t, got.OfferExpiresAt) {
		assert.True(t, got.OfferExpiresAt.Equal(testNow.Add(2*testWindow)))
	}

	counts, err := jobStore.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[scheduler.StatusSucceeded])
	assert.Equal(t, 1, counts[scheduler.StatusPending], "reallocated offer has its own expiry job")

	clk.Advance(testWindow)
	n, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.WaitingListExpired, store.entry(second.ID).Status)

	counts, err = jobStore.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[scheduler.StatusSucceeded])
	assert.Zero(t, counts[scheduler.StatusPending])
	assert.Zero(t, counts[scheduler.StatusDead])
}
