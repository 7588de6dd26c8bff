package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"event-waitlist/internal/clock"
)

var testNow = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

const testWindow = 30 * time.Minute

type testEnv struct {
	store        *fakeStore
	clock        *clock.Manual
	scheduler    *mockScheduler
	availability *AvailabilityService
	allocator    *OfferAllocator
	expiry       *OfferExpiryHandler
	waitingList  *WaitingListService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	clk := clock.NewManual(testNow)
	sched := &mockScheduler{}
	sched.On("ScheduleAfter", mock.Anything, mock.Anything, ExpireOfferJob, mock.Anything).Return(nil).Maybe()

	events := fakeEvents{store}
	tickets := fakeTickets{store}
	entries := fakeWaitingList{store}

	availability := NewAvailabilityService(events, tickets, entries, store, clk)
	allocator := NewOfferAllocator(entries, availability, sched, clk, testWindow)
	expiry := NewOfferExpiryHandler(entries, sched, allocator, clk)
	waitingList := NewWaitingListService(events, tickets, entries, store, allocator, clk)

	return &testEnv{
		store:        store,
		clock:        clk,
		scheduler:    sched,
		availability: availability,
		allocator:    allocator,
		expiry:       expiry,
		waitingList:  waitingList,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
