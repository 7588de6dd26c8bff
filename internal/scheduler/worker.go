package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"event-waitlist/internal/clock"
)

const (
	defaultPollInterval = time.Second
	defaultLeaseTTL     = 30 * time.Second
	defaultBatchSize    = 16
	defaultMaxAttempts  = 8
	maxRetryBackoff     = 5 * time.Minute
)

var tracer = otel.Tracer("event-waitlist/internal/scheduler")

// WorkerConfig controls the polling loop.
type WorkerConfig struct {
	Owner        string
	PollInterval time.Duration
	LeaseTTL     time.Duration
	BatchSize    int
	MaxAttempts  int
}

func (c WorkerConfig) normalized() WorkerConfig {
	if c.Owner == "" {
		c.Owner = "worker-" + uuid.NewString()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// Worker leases due jobs and dispatches them to registered handlers.
type Worker struct {
	store  *Store
	clock  clock.Clock
	config WorkerConfig

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewWorker creates a new worker polling store
func NewWorker(store *Store, clk clock.Clock, config WorkerConfig) *Worker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Worker{
		store:    store,
		clock:    clk,
		config:   config.normalized(),
		handlers: make(map[string]Handler),
	}
}

// Register binds handler to name. Registering a name twice replaces the handler.
func (w *Worker) Register(name string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[name] = handler
}

// Owner returns the lease owner identity of this worker.
func (w *Worker) Owner() string {
	return w.config.Owner
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("Scheduler worker %s started (poll every %s)", w.config.Owner, w.config.PollInterval)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Failed to process scheduled jobs: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("Scheduler worker %s stopped", w.config.Owner)
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessDue leases one batch of due jobs and runs them. It returns the
// number of jobs acknowledged.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := w.store.Lease(ctx, w.config.Owner, w.clock.Now(), w.config.LeaseTTL, w.config.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := w.runJob(ctx, &jobs[i]); err != nil {
			if errors.Is(err, ErrLeaseLost) {
				log.Printf("Lost lease on job %s (%s); another worker will redeliver it", jobs[i].ID, jobs[i].Handler)
				continue
			}
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (w *Worker) runJob(ctx context.Context, job *Job) error {
	ctx, span := tracer.Start(ctx, "scheduler.job")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.handler", job.Handler),
		attribute.Int("job.attempt", job.AttemptCount+1),
	)

	w.mu.RLock()
	handler, ok := w.handlers[job.Handler]
	w.mu.RUnlock()

	if !ok {
		msg := fmt.Sprintf("no handler registered for %q", job.Handler)
		span.SetStatus(codes.Error, msg)
		log.Printf("Dead-lettering job %s: %s", job.ID, msg)
		return w.store.MarkDead(ctx, job.ID, w.config.Owner, w.clock.Now(), msg)
	}

	if job.AttemptCount >= w.config.MaxAttempts {
		msg := fmt.Sprintf("lease lapsed on %d attempt(s) without acknowledgement", job.AttemptCount)
		span.SetStatus(codes.Error, msg)
		log.Printf("Dead-lettering job %s (%s): %s", job.ID, job.Handler, msg)
		return w.store.MarkDead(ctx, job.ID, w.config.Owner, w.clock.Now(), msg)
	}

	handlerErr := invoke(ctx, handler, job)
	now := w.clock.Now()
	if handlerErr == nil {
		return w.store.MarkSucceeded(ctx, job.ID, w.config.Owner, now)
	}

	span.RecordError(handlerErr)
	span.SetStatus(codes.Error, handlerErr.Error())

	attempt := job.AttemptCount + 1
	if IsPermanent(handlerErr) || attempt >= w.config.MaxAttempts {
		log.Printf("Dead-lettering job %s (%s) after %d attempt(s): %v", job.ID, job.Handler, attempt, handlerErr)
		return w.store.MarkDead(ctx, job.ID, w.config.Owner, now, handlerErr.Error())
	}

	next := now.Add(retryBackoff(attempt))
	log.Printf("Job %s (%s) failed on attempt %d, retrying at %s: %v", job.ID, job.Handler, attempt, next.Format(time.RFC3339), handlerErr)
	return w.store.MarkRetry(ctx, job.ID, w.config.Owner, now, next, handlerErr.Error())
}

// invoke runs handler, converting a panic into a retryable error.
func invoke(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", job.Handler, r)
		}
	}()
	return handler(ctx, job.Payload)
}

func retryBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > 20 {
		return maxRetryBackoff
	}
	backoff := time.Second << (attempt - 1)
	if backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}
