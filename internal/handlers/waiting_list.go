package handlers

import (
	"net/http"

	"event-waitlist/internal/services"
)

// WaitingListHandler serves endpoints scoped to a single waiting list entry or ticket
type WaitingListHandler struct {
	waitingList services.WaitingListServiceInterface
}

// NewWaitingListHandler creates a new waiting list handler
func NewWaitingListHandler(waitingList services.WaitingListServiceInterface) *WaitingListHandler {
	return &WaitingListHandler{waitingList: waitingList}
}

// StatusResponse acknowledges a state change with no resource to return
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetQueuePosition handles GET /api/waiting-list/{id}
func (h *WaitingListHandler) GetQueuePosition(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	position, err := h.waitingList.GetQueuePosition(r.Context(), entryID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, position)
}

// PurchaseOffer handles POST /api/waiting-list/{id}/purchase
func (h *WaitingListHandler) PurchaseOffer(w http.ResponseWriter, r *http.Request) {
	entryID, userID, ok := h.entryRequest(w, r)
	if !ok {
		return
	}

	ticket, err := h.waitingList.PurchaseOffer(r.Context(), entryID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

// ReleaseOffer handles POST /api/waiting-list/{id}/release
func (h *WaitingListHandler) ReleaseOffer(w http.ResponseWriter, r *http.Request) {
	entryID, userID, ok := h.entryRequest(w, r)
	if !ok {
		return
	}

	if err := h.waitingList.ReleaseOffer(r.Context(), entryID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "offer released"})
}

// CancelTicket handles POST /api/tickets/{id}/cancel
func (h *WaitingListHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, userID, ok := h.entryRequest(w, r)
	if !ok {
		return
	}

	if err := h.waitingList.CancelTicket(r.Context(), ticketID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "ticket cancelled"})
}

func (h *WaitingListHandler) entryRequest(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return 0, "", false
	}

	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return 0, "", false
	}

	return id, req.UserID, true
}
