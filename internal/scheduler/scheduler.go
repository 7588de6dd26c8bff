// Package scheduler runs deferred work durably. Jobs are rows in a SQLite
// table; a Worker leases due rows, invokes the registered Handler and
// acknowledges the outcome. Delivery is at-least-once: a job whose worker
// dies mid-run is leased again once its lease lapses, so handlers must be
// idempotent.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-waitlist/internal/clock"
)

// Handler processes one job payload. Returning an error wrapped with
// Permanent dead-letters the job; any other error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Scheduler enqueues jobs for later execution.
type Scheduler struct {
	store *Store
	clock clock.Clock
}

// New creates a new scheduler backed by store
func New(store *Store, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Scheduler{store: store, clock: clk}
}

// ScheduleAfter enqueues handler to run with payload once delay has elapsed.
// A non-positive delay makes the job due immediately.
func (s *Scheduler) ScheduleAfter(ctx context.Context, delay time.Duration, handler string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", handler, err)
	}

	now := s.clock.Now()
	if delay < 0 {
		delay = 0
	}
	if _, err := s.store.Enqueue(ctx, handler, raw, now.Add(delay), now); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", handler, err)
	}
	return nil
}
