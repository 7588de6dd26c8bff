package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"event-waitlist/internal/database"
	"event-waitlist/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Database tests require test database setup")
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, database.Config{URL: url})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE tickets, waiting_list, events RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestEvent(t *testing.T, db *database.DB, total int) *models.Event {
	t.Helper()

	event, err := NewEventRepository(db).Create(context.Background(), &models.EventCreateRequest{
		Name:         "Test Event",
		TotalTickets: total,
	}, time.Now().UTC())
	require.NoError(t, err)
	return event
}
