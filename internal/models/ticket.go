package models

import "time"

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// CommittedTicketStatuses are the statuses that hold a spot permanently.
var CommittedTicketStatuses = []TicketStatus{TicketValid, TicketUsed}

// Ticket represents a committed allocation for an event
type Ticket struct {
	ID            int64        `json:"id" db:"id"`
	EventID       int64        `json:"event_id" db:"event_id"`
	UserID        string       `json:"user_id" db:"user_id"`
	WaitingListID *int64       `json:"waiting_list_id,omitempty" db:"waiting_list_id"`
	Status        TicketStatus `json:"status" db:"status"`
	PurchasedAt   time.Time    `json:"purchased_at" db:"purchased_at"`
}

// IsValidStatus reports whether s is a known ticket status
func (s TicketStatus) IsValidStatus() bool {
	switch s {
	case TicketValid, TicketUsed, TicketRefunded, TicketCancelled:
		return true
	default:
		return false
	}
}

// HoldsSpot returns true if the ticket permanently consumes event capacity
func (t *Ticket) HoldsSpot() bool {
	return t.Status == TicketValid || t.Status == TicketUsed
}

// CanBeCancelled returns true if the ticket can be cancelled by its holder
func (t *Ticket) CanBeCancelled() bool {
	return t.Status == TicketValid
}
