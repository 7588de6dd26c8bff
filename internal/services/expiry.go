package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"event-waitlist/internal/clock"
	"event-waitlist/internal/models"
	"event-waitlist/internal/scheduler"
)

// ExpireOfferJob is the scheduler handler name for offer expiry.
const ExpireOfferJob = "waiting_list.expire_offer"

// ExpireOfferPayload is the job payload scheduled for every offer
type ExpireOfferPayload struct {
	WaitingListID int64 `json:"waitingListId"`
	EventID       int64 `json:"eventId"`
}

// OfferExpiryHandler expires unclaimed offers and returns their spots to the queue.
type OfferExpiryHandler struct {
	waitingList WaitingListRepository
	scheduler   Scheduler
	queue       QueueProcessor
	clock       clock.Clock
}

// NewOfferExpiryHandler creates a new offer expiry handler
func NewOfferExpiryHandler(
	waitingList WaitingListRepository,
	scheduler Scheduler,
	queue QueueProcessor,
	clk clock.Clock,
) *OfferExpiryHandler {
	return &OfferExpiryHandler{
		waitingList: waitingList,
		scheduler:   scheduler,
		queue:       queue,
		clock:       clk,
	}
}

// ExpireOffer expires the offer of entryID if it is still offered and due,
// then runs an allocation round for the event. It is safe to call any number
// of times for the same entry:
//   - waiting or purchased entries are left alone
//   - an already expired entry only triggers the allocation round again
//   - an offer that is not due yet is rescheduled for its deadline
func (h *OfferExpiryHandler) ExpireOffer(ctx context.Context, entryID, eventID int64) (err error) {
	ctx, span := tracer.Start(ctx, "OfferExpiryHandler.ExpireOffer")
	span.SetAttributes(
		attribute.Int64("waiting_list.id", entryID),
		attribute.Int64("event.id", eventID),
	)
	defer func() { endSpan(span, err) }()

	entry, err := h.waitingList.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.EventID != eventID {
		return fmt.Errorf("waiting list entry %d does not belong to event %d: %w",
			entryID, eventID, models.ErrWaitingListEntryNotFound)
	}

	span.SetAttributes(attribute.String("waiting_list.status", string(entry.Status)))

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("waiting list entry %d is malformed: %v: %w", entryID, err, models.ErrInvalidState)
	}

	switch entry.Status {
	case models.WaitingListWaiting, models.WaitingListPurchased:
		return nil

	case models.WaitingListExpired:
		return h.reallocate(ctx, eventID)
	}

	now := h.clock.Now()
	if !entry.OfferDue(now) {
		remaining := entry.OfferExpiresAt.Sub(now)
		payload := ExpireOfferPayload{WaitingListID: entryID, EventID: eventID}
		if err := h.scheduler.ScheduleAfter(ctx, remaining, ExpireOfferJob, payload); err != nil {
			return fmt.Errorf("failed to reschedule expiry for waiting list entry %d: %w", entryID, err)
		}
		return nil
	}

	expired, err := h.waitingList.MarkExpired(ctx, entryID, now)
	if err != nil {
		return fmt.Errorf("failed to expire offer for waiting list entry %d: %w", entryID, err)
	}
	if !expired {
		// Purchased or released between the read and the update.
		return nil
	}
	log.Printf("Offer for waiting list entry %d expired", entryID)
	return h.reallocate(ctx, eventID)
}

func (h *OfferExpiryHandler) reallocate(ctx context.Context, eventID int64) error {
	if _, err := h.queue.ProcessQueue(ctx, eventID); err != nil {
		return fmt.Errorf("failed to reallocate spots for event %d: %w", eventID, err)
	}
	return nil
}

// HandleJob adapts ExpireOffer to the scheduler. Undecodable payloads,
// missing entries and malformed entries are dead-lettered; every other
// failure is retried.
func (h *OfferExpiryHandler) HandleJob(ctx context.Context, payload json.RawMessage) error {
	var p ExpireOfferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return scheduler.Permanent(fmt.Errorf("failed to decode %s payload: %w", ExpireOfferJob, err))
	}

	err := h.ExpireOffer(ctx, p.WaitingListID, p.EventID)
	if err != nil && (models.IsNotFound(err) || errors.Is(err, models.ErrInvalidState)) {
		return scheduler.Permanent(err)
	}
	return err
}
