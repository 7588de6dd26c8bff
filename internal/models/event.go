package models

import (
	"errors"
	"strings"
	"time"
)

// Event represents a ticketed event with a fixed ticket pool
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	TotalTickets int       `json:"total_tickets" db:"total_tickets"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EventCreateRequest represents the data needed to create a new event
type EventCreateRequest struct {
	Name         string `json:"name"`
	TotalTickets int    `json:"total_tickets"`
}

// Validate validates the event creation data
func (req *EventCreateRequest) Validate() error {
	if err := validateEventName(req.Name); err != nil {
		return err
	}

	if err := validateTotalTickets(req.TotalTickets); err != nil {
		return err
	}

	return nil
}

// validateEventName validates an event name
func validateEventName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("event name is required")
	}

	if len(name) > 200 {
		return errors.New("event name must be less than 200 characters")
	}

	return nil
}

// validateTotalTickets validates the capacity of an event
func validateTotalTickets(total int) error {
	if total < 0 {
		return errors.New("total tickets cannot be negative")
	}

	// Maximum of 1,000,000 tickets per event
	if total > 1000000 {
		return errors.New("total tickets cannot exceed 1,000,000")
	}

	return nil
}
