package repositories

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"event-waitlist/internal/models"
)

// storeError wraps a driver error, tagging the ones a caller can safely retry
// with models.ErrTransientStore.
func storeError(action string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("failed to %s: %w: %w", action, models.ErrTransientStore, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch pqErr.Code.Class() {
	case "40", // transaction rollback: serialization_failure, deadlock_detected
		"08", // connection exception
		"53": // insufficient resources
		return true
	}

	switch pqErr.Code {
	case "57P01", "57P02", "57P03": // admin/crash shutdown, cannot connect now
		return true
	}

	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
