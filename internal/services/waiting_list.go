package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"event-waitlist/internal/clock"
	"event-waitlist/internal/models"
)

// WaitingListService implements the user-facing queue flows around the
// allocation engine: joining, purchasing, releasing and cancelling.
type WaitingListService struct {
	events      EventRepository
	tickets     TicketRepository
	waitingList WaitingListRepository
	tx          Transactor
	queue       QueueProcessor
	clock       clock.Clock
}

// NewWaitingListService creates a new waiting list service
func NewWaitingListService(
	events EventRepository,
	tickets TicketRepository,
	waitingList WaitingListRepository,
	tx Transactor,
	queue QueueProcessor,
	clk clock.Clock,
) *WaitingListService {
	return &WaitingListService{
		events:      events,
		tickets:     tickets,
		waitingList: waitingList,
		tx:          tx,
		queue:       queue,
		clock:       clk,
	}
}

// CreateEvent creates an event with a fixed ticket pool
func (s *WaitingListService) CreateEvent(ctx context.Context, req *models.EventCreateRequest) (*models.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, errors.Join(models.ErrInvalidInput, err)
	}

	event, err := s.events.Create(ctx, req, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	log.Printf("Created event %d (%q) with %d tickets", event.ID, event.Name, event.TotalTickets)
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *WaitingListService) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// JoinWaitingList queues userID for the event and runs an allocation round,
// so a user joining an event with free capacity is offered a ticket at once.
// The returned entry reflects that offer.
func (s *WaitingListService) JoinWaitingList(ctx context.Context, eventID int64, userID string) (entry *models.WaitingListEntry, err error) {
	ctx, span := tracer.Start(ctx, "WaitingListService.JoinWaitingList")
	span.SetAttributes(attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if err := models.ValidateUserID(userID); err != nil {
		return nil, errors.Join(models.ErrInvalidInput, err)
	}

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	existing, err := s.waitingList.FindActiveByUser(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing waiting list entry: %w", err)
	}
	if existing != nil {
		return nil, models.ErrAlreadyInQueue
	}

	entry, err = s.waitingList.Create(ctx, eventID, userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if _, err := s.queue.ProcessQueue(ctx, eventID); err != nil {
		// The entry is queued; a later round will serve it.
		log.Printf("Failed to process queue for event %d after join: %v", eventID, err)
		return entry, nil
	}

	refreshed, err := s.waitingList.GetByID(ctx, entry.ID)
	if err != nil {
		return entry, nil
	}
	return refreshed, nil
}

// GetQueuePosition returns the entry and its 1-based place among the
// event's waiting entries. Position is 0 for entries that are not waiting.
func (s *WaitingListService) GetQueuePosition(ctx context.Context, entryID int64) (*models.QueuePosition, error) {
	entry, err := s.waitingList.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	position := &models.QueuePosition{Entry: entry}
	if entry.Status != models.WaitingListWaiting {
		return position, nil
	}

	position.Position, err = s.waitingList.QueuePosition(ctx, entry.EventID, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue position: %w", err)
	}
	return position, nil
}

// PurchaseOffer turns a live offer into a valid ticket. The entry update and
// the ticket insert commit together.
func (s *WaitingListService) PurchaseOffer(ctx context.Context, entryID int64, userID string) (ticket *models.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "WaitingListService.PurchaseOffer")
	span.SetAttributes(attribute.Int64("waiting_list.id", entryID))
	defer func() { endSpan(span, err) }()

	entry, err := s.ownedEntry(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		purchased, err := s.waitingList.MarkPurchased(ctx, entryID, userID, now)
		if err != nil {
			return err
		}
		if !purchased {
			return models.ErrOfferNotValid
		}

		entryRef := entry.ID
		ticket, err = s.tickets.Create(ctx, &models.Ticket{
			EventID:       entry.EventID,
			UserID:        userID,
			WaitingListID: &entryRef,
			Status:        models.TicketValid,
			PurchasedAt:   now,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purchase offer %d: %w", entryID, err)
	}

	log.Printf("Waiting list entry %d purchased ticket %d for event %d", entryID, ticket.ID, entry.EventID)
	return ticket, nil
}

// ReleaseOffer lets the holder decline a live offer. The spot is offered to
// the next waiting user.
func (s *WaitingListService) ReleaseOffer(ctx context.Context, entryID int64, userID string) error {
	entry, err := s.ownedEntry(ctx, entryID, userID)
	if err != nil {
		return err
	}

	released, err := s.waitingList.ReleaseOffer(ctx, entryID, userID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to release offer %d: %w", entryID, err)
	}
	if !released {
		return models.ErrOfferNotValid
	}

	s.processQueue(ctx, entry.EventID, "release")
	return nil
}

// CancelTicket cancels a valid ticket and offers the freed spot to the queue.
func (s *WaitingListService) CancelTicket(ctx context.Context, ticketID int64, userID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.UserID != userID {
		return models.ErrTicketNotFound
	}

	cancelled, err := s.tickets.Cancel(ctx, ticketID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel ticket %d: %w", ticketID, err)
	}
	if !cancelled {
		return models.ErrTicketNotCancellable
	}

	log.Printf("Ticket %d for event %d cancelled", ticketID, ticket.EventID)
	s.processQueue(ctx, ticket.EventID, "cancellation")
	return nil
}

// ProcessQueue runs an allocation round on demand.
func (s *WaitingListService) ProcessQueue(ctx context.Context, eventID int64) (int, error) {
	return s.queue.ProcessQueue(ctx, eventID)
}

func (s *WaitingListService) ownedEntry(ctx context.Context, entryID int64, userID string) (*models.WaitingListEntry, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return nil, errors.Join(models.ErrInvalidInput, err)
	}

	entry, err := s.waitingList.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, models.ErrNotEntryOwner
	}
	return entry, nil
}

// processQueue runs a reallocation after a committed state change. Failures
// are logged and not returned because the triggering change already stands.
func (s *WaitingListService) processQueue(ctx context.Context, eventID int64, trigger string) {
	if _, err := s.queue.ProcessQueue(ctx, eventID); err != nil {
		log.Printf("Failed to process queue for event %d after %s: %v", eventID, trigger, err)
	}
}
