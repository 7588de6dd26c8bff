package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"event-waitlist/internal/models"
)

// fakeStore is an in-memory record store shared by the fake repositories.
type fakeStore struct {
	mu sync.Mutex

	events  map[int64]*models.Event
	tickets map[int64]*models.Ticket
	entries map[int64]*models.WaitingListEntry

	nextEventID  int64
	nextTicketID int64
	nextEntryID  int64

	failOps   map[string]error
	snapshots int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:       make(map[int64]*models.Event),
		tickets:      make(map[int64]*models.Ticket),
		entries:      make(map[int64]*models.WaitingListEntry),
		nextEventID:  1,
		nextTicketID: 1,
		nextEntryID:  1,
		failOps:      make(map[string]error),
	}
}

func (s *fakeStore) fail(op string) error {
	return s.failOps[op]
}

func (s *fakeStore) addEvent(total int) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	event := &models.Event{ID: s.nextEventID, Name: "Event", TotalTickets: total}
	s.events[event.ID] = event
	s.nextEventID++
	return event
}

func (s *fakeStore) addTicket(eventID int64, status models.TicketStatus) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := &models.Ticket{ID: s.nextTicketID, EventID: eventID, UserID: "holder", Status: status}
	s.tickets[ticket.ID] = ticket
	s.nextTicketID++
	return ticket
}

func (s *fakeStore) addEntry(eventID int64, userID string, status models.WaitingListStatus, expiresAt *time.Time) *models.WaitingListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &models.WaitingListEntry{
		ID:             s.nextEntryID,
		EventID:        eventID,
		UserID:         userID,
		Status:         status,
		OfferExpiresAt: expiresAt,
	}
	s.entries[entry.ID] = entry
	s.nextEntryID++
	return entry
}

func (s *fakeStore) entry(id int64) models.WaitingListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entries[id]
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	events, tickets, entries := s.cloneLocked()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.events, s.tickets, s.entries = events, tickets, entries
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.snapshots++
	s.mu.Unlock()
	return fn(ctx)
}

func (s *fakeStore) cloneLocked() (map[int64]*models.Event, map[int64]*models.Ticket, map[int64]*models.WaitingListEntry) {
	events := make(map[int64]*models.Event, len(s.events))
	for id, e := range s.events {
		c := *e
		events[id] = &c
	}
	tickets := make(map[int64]*models.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		c := *t
		tickets[id] = &c
	}
	entries := make(map[int64]*models.WaitingListEntry, len(s.entries))
	for id, e := range s.entries {
		c := *e
		entries[id] = &c
	}
	return events, tickets, entries
}

type fakeEvents struct{ *fakeStore }

func (r fakeEvents) Create(ctx context.Context, req *models.EventCreateRequest, now time.Time) (*models.Event, error) {
	if err := r.fail("events.Create"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	event := &models.Event{ID: r.nextEventID, Name: req.Name, TotalTickets: req.TotalTickets, CreatedAt: now}
	r.events[event.ID] = event
	r.nextEventID++
	c := *event
	return &c, nil
}

func (r fakeEvents) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	if err := r.fail("events.GetByID"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	c := *event
	return &c, nil
}

type fakeTickets struct{ *fakeStore }

func (r fakeTickets) CountCommitted(ctx context.Context, eventID int64) (int, error) {
	if err := r.fail("tickets.CountCommitted"); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.EventID == eventID && t.HoldsSpot() {
			count++
		}
	}
	return count, nil
}

func (r fakeTickets) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.fail("tickets.Create"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *ticket
	c.ID = r.nextTicketID
	r.nextTicketID++
	r.tickets[c.ID] = &c
	out := c
	return &out, nil
}

func (r fakeTickets) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	c := *t
	return &c, nil
}

func (r fakeTickets) Cancel(ctx context.Context, id int64, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.UserID != userID || t.Status != models.TicketValid {
		return false, nil
	}
	t.Status = models.TicketCancelled
	return true, nil
}

type fakeWaitingList struct{ *fakeStore }

func (r fakeWaitingList) Create(ctx context.Context, eventID int64, userID string, now time.Time) (*models.WaitingListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.EventID == eventID && e.UserID == userID && !e.Status.IsTerminal() {
			return nil, models.ErrAlreadyInQueue
		}
	}
	entry := &models.WaitingListEntry{
		ID:        r.nextEntryID,
		EventID:   eventID,
		UserID:    userID,
		Status:    models.WaitingListWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.entries[entry.ID] = entry
	r.nextEntryID++
	c := *entry
	return &c, nil
}

func (r fakeWaitingList) GetByID(ctx context.Context, id int64) (*models.WaitingListEntry, error) {
	if err := r.fail("waitingList.GetByID"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, models.ErrWaitingListEntryNotFound
	}
	c := *e
	return &c, nil
}

func (r fakeWaitingList) FindActiveByUser(ctx context.Context, eventID int64, userID string) (*models.WaitingListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.EventID == eventID && e.UserID == userID && !e.Status.IsTerminal() {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeWaitingList) ListWaiting(ctx context.Context, eventID int64, limit int) ([]*models.WaitingListEntry, error) {
	if err := r.fail("waitingList.ListWaiting"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WaitingListEntry
	for _, e := range r.entries {
		if e.EventID == eventID && e.Status == models.WaitingListWaiting {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeWaitingList) CountLiveOffers(ctx context.Context, eventID int64, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.entries {
		if e.EventID == eventID && e.HasLiveOffer(now) {
			count++
		}
	}
	return count, nil
}

func (r fakeWaitingList) QueuePosition(ctx context.Context, eventID, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position := 0
	for _, e := range r.entries {
		if e.EventID == eventID && e.Status == models.WaitingListWaiting && e.ID <= id {
			position++
		}
	}
	return position, nil
}

func (r fakeWaitingList) MarkOffered(ctx context.Context, id int64, expiresAt, now time.Time) (bool, error) {
	if err := r.fail("waitingList.MarkOffered"); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.WaitingListWaiting {
		return false, nil
	}
	e.Status = models.WaitingListOffered
	e.OfferExpiresAt = &expiresAt
	e.UpdatedAt = now
	return true, nil
}

func (r fakeWaitingList) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	if err := r.fail("waitingList.MarkExpired"); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !e.OfferDue(now) {
		return false, nil
	}
	e.Status = models.WaitingListExpired
	e.OfferExpiresAt = nil
	e.UpdatedAt = now
	return true, nil
}

func (r fakeWaitingList) ReleaseOffer(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.UserID != userID || e.Status != models.WaitingListOffered {
		return false, nil
	}
	e.Status = models.WaitingListExpired
	e.OfferExpiresAt = nil
	e.UpdatedAt = now
	return true, nil
}

func (r fakeWaitingList) MarkPurchased(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.UserID != userID || !e.HasLiveOffer(now) {
		return false, nil
	}
	e.Status = models.WaitingListPurchased
	e.OfferExpiresAt = nil
	e.UpdatedAt = now
	return true, nil
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) ScheduleAfter(ctx context.Context, delay time.Duration, handler string, payload any) error {
	args := m.Called(ctx, delay, handler, payload)
	return args.Error(0)
}

// scheduledPayloads returns the expiry payloads passed to ScheduleAfter, in call order.
func (m *mockScheduler) scheduledPayloads() []ExpireOfferPayload {
	var out []ExpireOfferPayload
	for _, call := range m.Calls {
		if call.Method != "ScheduleAfter" {
			continue
		}
		if p, ok := call.Arguments.Get(3).(ExpireOfferPayload); ok {
			out = append(out, p)
		}
	}
	return out
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) ProcessQueue(ctx context.Context, eventID int64) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}
