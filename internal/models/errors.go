package models

import (
	"errors"
	"fmt"
)

// Error classes. Every sentinel below wraps exactly one of these so callers
// can branch with errors.Is on the class instead of the specific error.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTransientStore = errors.New("transient store failure")
)

// Common errors used throughout the application
var (
	ErrEventNotFound            = fmt.Errorf("event %w", ErrNotFound)
	ErrTicketNotFound           = fmt.Errorf("ticket %w", ErrNotFound)
	ErrWaitingListEntryNotFound = fmt.Errorf("waiting list entry %w", ErrNotFound)

	ErrOfferNotValid        = fmt.Errorf("offer no longer valid: %w", ErrInvalidState)
	ErrAlreadyInQueue       = fmt.Errorf("user already has an active waiting list entry: %w", ErrInvalidState)
	ErrTicketNotCancellable = fmt.Errorf("ticket cannot be cancelled: %w", ErrInvalidState)
	ErrNotEntryOwner        = fmt.Errorf("waiting list entry belongs to another user: %w", ErrInvalidState)
)

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState reports whether err is a state-transition conflict.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsTransient reports whether err came from a store failure that is safe to retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore)
}
