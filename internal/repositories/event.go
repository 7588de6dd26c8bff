package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"event-waitlist/internal/database"
	"event-waitlist/internal/models"
)

// EventRepository handles event data operations
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, req *models.EventCreateRequest, now time.Time) (*models.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Join(models.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO events (name, total_tickets, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, name, total_tickets, created_at`

	event := &models.Event{}
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, req.Name, req.TotalTickets, now).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, storeError("create event", err)
	}

	return event, nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT id, name, total_tickets, created_at
		FROM events
		WHERE id = $1`

	event := &models.Event{}
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, storeError("get event", err)
	}

	return event, nil
}
