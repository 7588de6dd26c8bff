package handlers

import (
	"errors"
	"net/http"

	"event-waitlist/internal/models"
	"event-waitlist/internal/services"
)

// EventHandler serves event, availability and queue-join endpoints
type EventHandler struct {
	waitingList  services.WaitingListServiceInterface
	availability services.AvailabilityServiceInterface
	allocator    services.OfferAllocatorInterface
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	waitingList services.WaitingListServiceInterface,
	availability services.AvailabilityServiceInterface,
	allocator services.OfferAllocatorInterface,
) *EventHandler {
	return &EventHandler{
		waitingList:  waitingList,
		availability: availability,
		allocator:    allocator,
	}
}

// AvailabilityResponse is the body of GET /api/events/{id}/availability
type AvailabilityResponse struct {
	EventID        int64 `json:"event_id"`
	TotalTickets   int   `json:"total_tickets"`
	AvailableSpots int   `json:"available_spots"`
}

// UserRequest is the body of the user-scoped POST endpoints
type UserRequest struct {
	UserID string `json:"user_id"`
}

// ProcessQueueRequest is the optional body of POST /api/events/{id}/offers
type ProcessQueueRequest struct {
	Spots *int `json:"spots,omitempty"`
}

// ProcessQueueResponse reports how many offers a round made
type ProcessQueueResponse struct {
	EventID int64 `json:"event_id"`
	Offered int   `json:"offered"`
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.waitingList.CreateEvent(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.waitingList.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// GetAvailability handles GET /api/events/{id}/availability. Negative
// availability is reported as zero.
func (h *EventHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.waitingList.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	spots, err := h.availability.AvailableSpots(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		EventID:        eventID,
		TotalTickets:   event.TotalTickets,
		AvailableSpots: max(spots, 0),
	})
}

// JoinWaitingList handles POST /api/events/{id}/waiting-list
func (h *EventHandler) JoinWaitingList(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	entry, err := h.waitingList.JoinWaitingList(r.Context(), eventID, req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// ProcessQueue handles POST /api/events/{id}/offers. Without a body it runs
// a full allocation round; with spots set it offers at most that many.
func (h *EventHandler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req ProcessQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Spots != nil && *req.Spots < 0 {
		writeServiceError(w, r, errors.Join(models.ErrInvalidInput, errors.New("spots cannot be negative")))
		return
	}

	var offered int
	if req.Spots != nil {
		offered, err = h.allocateUpTo(r, eventID, *req.Spots)
	} else {
		offered, err = h.waitingList.ProcessQueue(r.Context(), eventID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessQueueResponse{EventID: eventID, Offered: offered})
}

func (h *EventHandler) allocateUpTo(r *http.Request, eventID int64, limit int) (int, error) {
	spots, err := h.availability.AvailableSpots(r.Context(), eventID)
	if err != nil {
		return 0, err
	}
	return h.allocator.AllocateOffers(r.Context(), eventID, min(spots, limit))
}
