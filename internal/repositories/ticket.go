package repositories

import (
	"context"
	"database/sql"
	"errors"

	"event-waitlist/internal/database"
	"event-waitlist/internal/models"
)

// TicketRepository handles ticket data operations
type TicketRepository struct {
	db *database.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// CountCommitted counts the tickets of an event that permanently hold a spot
func (r *TicketRepository) CountCommitted(ctx context.Context, eventID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE event_id = $1 AND status IN ($2, $3)`

	var count int
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, eventID, models.TicketValid, models.TicketUsed).Scan(&count)
	if err != nil {
		return 0, storeError("count committed tickets", err)
	}

	return count, nil
}

// Create inserts a valid ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if !ticket.Status.IsValidStatus() {
		return nil, errors.Join(models.ErrInvalidInput, errors.New("invalid ticket status"))
	}

	query := `
		INSERT INTO tickets (event_id, user_id, waiting_list_id, status, purchased_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, event_id, user_id, waiting_list_id, status, purchased_at`

	created, err := scanTicket(r.db.Conn(ctx).QueryRowContext(ctx, query,
		ticket.EventID,
		ticket.UserID,
		ticket.WaitingListID,
		ticket.Status,
		ticket.PurchasedAt,
	))
	if err != nil {
		return nil, storeError("create ticket", err)
	}

	return created, nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `
		SELECT id, event_id, user_id, waiting_list_id, status, purchased_at
		FROM tickets
		WHERE id = $1`

	ticket, err := scanTicket(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTicketNotFound
		}
		return nil, storeError("get ticket", err)
	}

	return ticket, nil
}

// Cancel moves a valid ticket owned by userID to cancelled. It reports false
// when the ticket was not valid or not owned by the user.
func (r *TicketRepository) Cancel(ctx context.Context, id int64, userID string) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $3
		WHERE id = $1 AND user_id = $2 AND status = $4`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id, userID, models.TicketCancelled, models.TicketValid)
	if err != nil {
		return false, storeError("cancel ticket", err)
	}

	return affectedOne(result)
}

func scanTicket(row *sql.Row) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var waitingListID sql.NullInt64
	err := row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.UserID,
		&waitingListID,
		&ticket.Status,
		&ticket.PurchasedAt,
	)
	if err != nil {
		return nil, err
	}
	if waitingListID.Valid {
		id := waitingListID.Int64
		ticket.WaitingListID = &id
	}
	return ticket, nil
}

func affectedOne(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storeError("get rows affected", err)
	}
	return rowsAffected == 1, nil
}
