package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"event-waitlist/internal/middleware"
	"event-waitlist/internal/models"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to write JSON response: %v", err)
	}
}

// writeServiceError maps a service error onto an HTTP status
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Internal Server Error"

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status, message = http.StatusBadRequest, validationMessage(err)
	case models.IsNotFound(err):
		status, message = http.StatusNotFound, notFoundMessage(err)
	case errors.Is(err, models.ErrOfferNotValid):
		status, message = http.StatusConflict, "offer no longer valid"
	case errors.Is(err, models.ErrAlreadyInQueue):
		status, message = http.StatusConflict, "user already has an active waiting list entry"
	case errors.Is(err, models.ErrTicketNotCancellable):
		status, message = http.StatusConflict, "ticket cannot be cancelled"
	case errors.Is(err, models.ErrNotEntryOwner):
		status, message = http.StatusForbidden, "waiting list entry belongs to another user"
	case models.IsInvalidState(err):
		status, message = http.StatusConflict, "request conflicts with current state"
	case models.IsTransient(err):
		status, message = http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"
		w.Header().Set("Retry-After", "1")
	}

	if status >= http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v request_id=%s", r.Method, r.URL.Path, err, middleware.GetRequestID(r.Context()))
	}
	middleware.WriteError(w, status, message)
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		return "event not found"
	case errors.Is(err, models.ErrWaitingListEntryNotFound):
		return "waiting list entry not found"
	case errors.Is(err, models.ErrTicketNotFound):
		return "ticket not found"
	}
	return "not found"
}

// validationMessage drops the class prefix errors.Join puts on validation errors
func validationMessage(err error) string {
	lines := strings.Split(err.Error(), "\n")
	var kept []string
	for _, line := range lines {
		if line != models.ErrInvalidInput.Error() {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "invalid input"
	}
	return strings.Join(kept, "; ")
}

// decodeJSON decodes the request body into dst. An empty body leaves dst unchanged.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(models.ErrInvalidInput, fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

// parseIDParam reads a positive integer URL parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(models.ErrInvalidInput, fmt.Errorf("invalid %s %q", name, raw))
	}
	return id, nil
}
