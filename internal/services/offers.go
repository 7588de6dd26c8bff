package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"event-waitlist/internal/clock"
)

// DefaultOfferWindow is how long an offered user has to purchase.
const DefaultOfferWindow = 30 * time.Minute

// SpotCounter reports the free capacity of an event
type SpotCounter interface {
	AvailableSpots(ctx context.Context, eventID int64) (int, error)
}

// OfferAllocator hands time-boxed offers to waiting users in join order.
type OfferAllocator struct {
	waitingList WaitingListRepository
	spots       SpotCounter
	scheduler   Scheduler
	clock       clock.Clock
	offerWindow time.Duration
}

// NewOfferAllocator creates a new offer allocator
func NewOfferAllocator(
	waitingList WaitingListRepository,
	spots SpotCounter,
	scheduler Scheduler,
	clk clock.Clock,
	offerWindow time.Duration,
) *OfferAllocator {
	if offerWindow <= 0 {
		offerWindow = DefaultOfferWindow
	}
	return &OfferAllocator{
		waitingList: waitingList,
		spots:       spots,
		scheduler:   scheduler,
		clock:       clk,
		offerWindow: offerWindow,
	}
}

// OfferWindow returns the configured offer duration
func (a *OfferAllocator) OfferWindow() time.Duration {
	return a.offerWindow
}

// AllocateOffers offers up to spotCount of the oldest waiting entries of the
// event and returns how many offers were made. A spotCount of zero or less
// is a no-op.
//
// Each entry is handled independently. Its expiry job is enqueued first and
// the entry is then moved waiting -> offered with a conditional update; an
// entry another round already took is skipped and not counted, and its
// stray expiry job finds nothing to expire. On error the offers made so far
// stay valid and are returned with the error, so the caller can retry with
// the remaining count.
func (a *OfferAllocator) AllocateOffers(ctx context.Context, eventID int64, spotCount int) (offered int, err error) {
	if spotCount <= 0 {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "OfferAllocator.AllocateOffers")
	span.SetAttributes(
		attribute.Int64("event.id", eventID),
		attribute.Int("spots.requested", spotCount),
	)
	defer func() {
		span.SetAttributes(attribute.Int("offers.made", offered))
		endSpan(span, err)
	}()

	entries, err := a.waitingList.ListWaiting(ctx, eventID, spotCount)
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting entries for event %d: %w", eventID, err)
	}

	for _, entry := range entries {
		if offered >= spotCount {
			break
		}

		now := a.clock.Now()
		expiresAt := now.Add(a.offerWindow)

		payload := ExpireOfferPayload{WaitingListID: entry.ID, EventID: eventID}
		if err := a.scheduler.ScheduleAfter(ctx, a.offerWindow, ExpireOfferJob, payload); err != nil {
			return offered, fmt.Errorf("failed to schedule expiry for waiting list entry %d: %w", entry.ID, err)
		}

		ok, err := a.waitingList.MarkOffered(ctx, entry.ID, expiresAt, now)
		if err != nil {
			return offered, fmt.Errorf("failed to offer ticket to waiting list entry %d: %w", entry.ID, err)
		}
		if !ok {
			log.Printf("Waiting list entry %d was taken by a concurrent allocation round, skipping", entry.ID)
			continue
		}
		offered++
	}

	if offered > 0 {
		log.Printf("Offered %d ticket(s) for event %d", offered, eventID)
	}
	return offered, nil
}

// ProcessQueue runs one allocation round: it reads the free spots and offers
// that many. The read and the allocation are not atomic. Two rounds for the
// same event running concurrently can both see the same free spots and
// offer to different entries, exceeding capacity. This gap is known and is
// not closed here.
func (a *OfferAllocator) ProcessQueue(ctx context.Context, eventID int64) (int, error) {
	spots, err := a.spots.AvailableSpots(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if spots <= 0 {
		return 0, nil
	}
	return a.AllocateOffers(ctx, eventID, spots)
}
