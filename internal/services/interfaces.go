package services

import (
	"context"
	"time"

	"event-waitlist/internal/models"
)

// EventRepository is the event storage used by the services
type EventRepository interface {
	Create(ctx context.Context, req *models.EventCreateRequest, now time.Time) (*models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// TicketRepository is the ticket storage used by the services
type TicketRepository interface {
	CountCommitted(ctx context.Context, eventID int64) (int, error)
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	Cancel(ctx context.Context, id int64, userID string) (bool, error)
}

// WaitingListRepository is the waiting list storage used by the services.
// The Mark* and ReleaseOffer methods are conditional single-row updates that
// report false when the entry was not in the expected state.
type WaitingListRepository interface {
	Create(ctx context.Context, eventID int64, userID string, now time.Time) (*models.WaitingListEntry, error)
	GetByID(ctx context.Context, id int64) (*models.WaitingListEntry, error)
	FindActiveByUser(ctx context.Context, eventID int64, userID string) (*models.WaitingListEntry, error)
	ListWaiting(ctx context.Context, eventID int64, limit int) ([]*models.WaitingListEntry, error)
	CountLiveOffers(ctx context.Context, eventID int64, now time.Time) (int, error)
	QueuePosition(ctx context.Context, eventID, id int64) (int, error)
	MarkOffered(ctx context.Context, id int64, expiresAt, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error)
	ReleaseOffer(ctx context.Context, id int64, userID string, now time.Time) (bool, error)
	MarkPurchased(ctx context.Context, id int64, userID string, now time.Time) (bool, error)
}

// Transactor runs functions inside a store transaction carried on the context
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Scheduler enqueues durable deferred work
type Scheduler interface {
	ScheduleAfter(ctx context.Context, delay time.Duration, handler string, payload any) error
}

// QueueProcessor runs one allocation round for an event
type QueueProcessor interface {
	ProcessQueue(ctx context.Context, eventID int64) (int, error)
}

// AvailabilityServiceInterface defines the interface for availability reads
type AvailabilityServiceInterface interface {
	AvailableSpots(ctx context.Context, eventID int64) (int, error)
}

// WaitingListServiceInterface defines the interface for waiting list flows
type WaitingListServiceInterface interface {
	CreateEvent(ctx context.Context, req *models.EventCreateRequest) (*models.Event, error)
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	JoinWaitingList(ctx context.Context, eventID int64, userID string) (*models.WaitingListEntry, error)
	GetQueuePosition(ctx context.Context, entryID int64) (*models.QueuePosition, error)
	PurchaseOffer(ctx context.Context, entryID int64, userID string) (*models.Ticket, error)
	ReleaseOffer(ctx context.Context, entryID int64, userID string) error
	CancelTicket(ctx context.Context, ticketID int64, userID string) error
	ProcessQueue(ctx context.Context, eventID int64) (int, error)
}

// OfferAllocatorInterface defines the interface for manual offer rounds
type OfferAllocatorInterface interface {
	AllocateOffers(ctx context.Context, eventID int64, spotCount int) (int, error)
}
