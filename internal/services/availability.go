package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"event-waitlist/internal/clock"
)

// AvailabilityService derives how many spots of an event are free.
// Spots are never stored.
type AvailabilityService struct {
	events      EventRepository
	tickets     TicketRepository
	waitingList WaitingListRepository
	tx          Transactor
	clock       clock.Clock
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	events EventRepository,
	tickets TicketRepository,
	waitingList WaitingListRepository,
	tx Transactor,
	clk clock.Clock,
) *AvailabilityService {
	return &AvailabilityService{
		events:      events,
		tickets:     tickets,
		waitingList: waitingList,
		tx:          tx,
		clock:       clk,
	}
}

// AvailableSpots returns total tickets minus committed tickets minus live
// offers. Offers whose deadline is not strictly after now do not count, even
// if their expiry job has not run yet. The result is negative only when the
// event is already oversold; callers treat that as zero.
//
// The event and both counts are read from one snapshot.
func (s *AvailabilityService) AvailableSpots(ctx context.Context, eventID int64) (spots int, err error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.AvailableSpots")
	span.SetAttributes(attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	now := s.clock.Now()

	err = s.tx.WithSnapshot(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}

		committed, err := s.tickets.CountCommitted(ctx, eventID)
		if err != nil {
			return err
		}

		liveOffers, err := s.waitingList.CountLiveOffers(ctx, eventID, now)
		if err != nil {
			return err
		}

		spots = event.TotalTickets - (committed + liveOffers)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute available spots for event %d: %w", eventID, err)
	}

	span.SetAttributes(attribute.Int("spots.available", spots))
	return spots, nil
}
