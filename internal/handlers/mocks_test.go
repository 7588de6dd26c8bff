package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"event-waitlist/internal/models"
)

// MockWaitingListService for testing
type MockWaitingListService struct {
	mock.Mock
}

func (m *MockWaitingListService) CreateEvent(ctx context.Context, req *models.EventCreateRequest) (*models.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockWaitingListService) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockWaitingListService) JoinWaitingList(ctx context.Context, eventID int64, userID string) (*models.WaitingListEntry, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingListEntry), args.Error(1)
}

func (m *MockWaitingListService) GetQueuePosition(ctx context.Context, entryID int64) (*models.QueuePosition, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueuePosition), args.Error(1)
}

func (m *MockWaitingListService) PurchaseOffer(ctx context.Context, entryID int64, userID string) (*models.Ticket, error) {
	args := m.Called(ctx, entryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockWaitingListService) ReleaseOffer(ctx context.Context, entryID int64, userID string) error {
	args := m.Called(ctx, entryID, userID)
	return args.Error(0)
}

func (m *MockWaitingListService) CancelTicket(ctx context.Context, ticketID int64, userID string) error {
	args := m.Called(ctx, ticketID, userID)
	return args.Error(0)
}

func (m *MockWaitingListService) ProcessQueue(ctx context.Context, eventID int64) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

// MockAvailabilityService for testing
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) AvailableSpots(ctx context.Context, eventID int64) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

// MockOfferAllocator for testing
type MockOfferAllocator struct {
	mock.Mock
}

func (m *MockOfferAllocator) AllocateOffers(ctx context.Context, eventID int64, spotCount int) (int, error) {
	args := m.Called(ctx, eventID, spotCount)
	return args.Int(0), args.Error(1)
}
