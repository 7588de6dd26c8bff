package models

import (
	"errors"
	"strings"
	"time"
)

// WaitingListStatus represents the status of a waiting list entry
type WaitingListStatus string

const (
	WaitingListWaiting   WaitingListStatus = "waiting"
	WaitingListOffered   WaitingListStatus = "offered"
	WaitingListPurchased WaitingListStatus = "purchased"
	WaitingListExpired   WaitingListStatus = "expired"
)

// WaitingListEntry represents a user's place in an event queue.
//
// OfferExpiresAt is set if and only if Status is WaitingListOffered.
type WaitingListEntry struct {
	ID             int64             `json:"id" db:"id"`
	EventID        int64             `json:"event_id" db:"event_id"`
	UserID         string            `json:"user_id" db:"user_id"`
	Status         WaitingListStatus `json:"status" db:"status"`
	OfferExpiresAt *time.Time        `json:"offer_expires_at,omitempty" db:"offer_expires_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true for statuses this service never transitions out of
func (s WaitingListStatus) IsTerminal() bool {
	return s == WaitingListPurchased || s == WaitingListExpired
}

// IsValidStatus reports whether s is a known waiting list status
func (s WaitingListStatus) IsValidStatus() bool {
	switch s {
	case WaitingListWaiting, WaitingListOffered, WaitingListPurchased, WaitingListExpired:
		return true
	default:
		return false
	}
}

// HasLiveOffer returns true if the entry holds an offer that has not yet expired at now.
// An offer expiring exactly at now is no longer live.
func (e *WaitingListEntry) HasLiveOffer(now time.Time) bool {
	return e.Status == WaitingListOffered &&
		e.OfferExpiresAt != nil &&
		e.OfferExpiresAt.After(now)
}

// OfferDue returns true if the entry is offered and its deadline has passed at now
func (e *WaitingListEntry) OfferDue(now time.Time) bool {
	return e.Status == WaitingListOffered &&
		(e.OfferExpiresAt == nil || !e.OfferExpiresAt.After(now))
}

// Validate checks the offerExpiresAt/status pairing and field formats
func (e *WaitingListEntry) Validate() error {
	if err := validateUserID(e.UserID); err != nil {
		return err
	}

	if !e.Status.IsValidStatus() {
		return errors.New("invalid waiting list status")
	}

	if e.Status == WaitingListOffered && e.OfferExpiresAt == nil {
		return errors.New("offered entry must have an offer expiry")
	}

	if e.Status != WaitingListOffered && e.OfferExpiresAt != nil {
		return errors.New("only offered entries may have an offer expiry")
	}

	return nil
}

// validateUserID validates an external user identifier
func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}

	if len(userID) > 255 {
		return errors.New("user id must be less than 255 characters")
	}

	return nil
}

// ValidateUserID is the exported form used by request handlers and services
func ValidateUserID(userID string) error {
	return validateUserID(userID)
}

// QueuePosition describes where an entry sits in its event queue
type QueuePosition struct {
	Entry *WaitingListEntry `json:"entry"`
	// Position is 1-based among waiting entries; 0 when the entry is not waiting.
	Position int `json:"position"`
}
