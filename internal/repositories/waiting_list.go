package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"event-waitlist/internal/database"
	"event-waitlist/internal/models"
)

// WaitingListRepository handles waiting list data operations.
//
// Every state transition is a single conditional UPDATE on one row, guarded
// by the status the caller expects to find. A false return means the row was
// no longer in that status (or did not match), not an error.
type WaitingListRepository struct {
	db *database.DB
}

// NewWaitingListRepository creates a new waiting list repository
func NewWaitingListRepository(db *database.DB) *WaitingListRepository {
	return &WaitingListRepository{db: db}
}

const waitingListColumns = `id, event_id, user_id, status, offer_expires_at, created_at, updated_at`

// Create inserts a waiting entry for userID
func (r *WaitingListRepository) Create(ctx context.Context, eventID int64, userID string, now time.Time) (*models.WaitingListEntry, error) {
	query := `
		INSERT INTO waiting_list (event_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + waitingListColumns

	entry, err := scanEntry(r.db.Conn(ctx).QueryRowContext(ctx, query, eventID, userID, models.WaitingListWaiting, now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrAlreadyInQueue
		}
		return nil, storeError("create waiting list entry", err)
	}

	return entry, nil
}

// GetByID retrieves a waiting list entry by ID
func (r *WaitingListRepository) GetByID(ctx context.Context, id int64) (*models.WaitingListEntry, error) {
	query := `SELECT ` + waitingListColumns + ` FROM waiting_list WHERE id = $1`

	entry, err := scanEntry(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrWaitingListEntryNotFound
		}
		return nil, storeError("get waiting list entry", err)
	}

	return entry, nil
}

// FindActiveByUser returns the user's waiting or offered entry for the event, or nil
func (r *WaitingListRepository) FindActiveByUser(ctx context.Context, eventID int64, userID string) (*models.WaitingListEntry, error) {
	query := `
		SELECT ` + waitingListColumns + `
		FROM waiting_list
		WHERE event_id = $1 AND user_id = $2 AND status IN ($3, $4)
		ORDER BY id DESC
		LIMIT 1`

	entry, err := scanEntry(r.db.Conn(ctx).QueryRowContext(ctx, query,
		eventID, userID, models.WaitingListWaiting, models.WaitingListOffered))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("find active waiting list entry", err)
	}

	return entry, nil
}

// ListWaiting returns up to limit waiting entries in join order
func (r *WaitingListRepository) ListWaiting(ctx context.Context, eventID int64, limit int) ([]*models.WaitingListEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + waitingListColumns + `
		FROM waiting_list
		WHERE event_id = $1 AND status = $2
		ORDER BY id ASC
		LIMIT $3`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, eventID, models.WaitingListWaiting, limit)
	if err != nil {
		return nil, storeError("list waiting entries", err)
	}
	defer rows.Close()

	entries := make([]*models.WaitingListEntry, 0, listCapacity(limit))
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeError("scan waiting list entry", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError("iterate waiting entries", err)
	}

	return entries, nil
}

// maxListPrealloc bounds the slice preallocated for a LIMIT query; limit is
// sized by free capacity, not by how many rows exist.
const maxListPrealloc = 64

func listCapacity(limit int) int {
	return max(min(limit, maxListPrealloc), 0)
}

// CountLiveOffers counts offered entries whose deadline is strictly after now
func (r *WaitingListRepository) CountLiveOffers(ctx context.Context, eventID int64, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM waiting_list
		WHERE event_id = $1 AND status = $2 AND offer_expires_at > $3`

	var count int
	if err := r.db.Conn(ctx).QueryRowContext(ctx, query, eventID, models.WaitingListOffered, now).Scan(&count); err != nil {
		return 0, storeError("count live offers", err)
	}

	return count, nil
}

// QueuePosition returns the 1-based position of a waiting entry among its event's waiting entries
func (r *WaitingListRepository) QueuePosition(ctx context.Context, eventID, id int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM waiting_list
		WHERE event_id = $1 AND status = $2 AND id <= $3`

	var position int
	if err := r.db.Conn(ctx).QueryRowContext(ctx, query, eventID, models.WaitingListWaiting, id).Scan(&position); err != nil {
		return 0, storeError("get queue position", err)
	}

	return position, nil
}

// MarkOffered moves a waiting entry to offered with the given deadline
func (r *WaitingListRepository) MarkOffered(ctx context.Context, id int64, expiresAt, now time.Time) (bool, error) {
	query := `
		UPDATE waiting_list
		SET status = $2, offer_expires_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5`

	return r.transition(ctx, "mark entry offered", query,
		id, models.WaitingListOffered, expiresAt, now, models.WaitingListWaiting)
}

// MarkExpired moves an offered entry whose deadline has passed to expired
func (r *WaitingListRepository) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE waiting_list
		SET status = $2, offer_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND status = $4 AND offer_expires_at <= $3`

	return r.transition(ctx, "mark entry expired", query,
		id, models.WaitingListExpired, now, models.WaitingListOffered)
}

// ReleaseOffer expires an offered entry ahead of its deadline at the holder's request
func (r *WaitingListRepository) ReleaseOffer(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	query := `
		UPDATE waiting_list
		SET status = $3, offer_expires_at = NULL, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = $5`

	return r.transition(ctx, "release offer", query,
		id, userID, models.WaitingListExpired, now, models.WaitingListOffered)
}

// MarkPurchased moves a live offer held by userID to purchased
func (r *WaitingListRepository) MarkPurchased(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	query := `
		UPDATE waiting_list
		SET status = $3, offer_expires_at = NULL, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = $5 AND offer_expires_at > $4`

	return r.transition(ctx, "mark entry purchased", query,
		id, userID, models.WaitingListPurchased, now, models.WaitingListOffered)
}

func (r *WaitingListRepository) transition(ctx context.Context, action, query string, args ...any) (bool, error) {
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeError(action, err)
	}
	return affectedOne(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.WaitingListEntry, error) {
	entry := &models.WaitingListEntry{}
	var offerExpiresAt sql.NullTime
	err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.UserID,
		&entry.Status,
		&offerExpiresAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if offerExpiresAt.Valid {
		expiresAt := offerExpiresAt.Time.UTC()
		entry.OfferExpiresAt = &expiresAt
	}
	return entry, nil
}
