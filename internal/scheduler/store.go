package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"event-waitlist/internal/scheduler/migrations"
)

// ErrLeaseLost is returned when a job is acknowledged by a worker that no
// longer holds its lease.
var ErrLeaseLost = errors.New("job lease lost")

// Store provides SQLite-backed durable job persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the job store at path, creating it and applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create scheduler storage dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the job database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Enqueue persists a pending job. ID, Status and timestamps are filled in.
func (s *Store) Enqueue(ctx context.Context, handler string, payload json.RawMessage, runAt, now time.Time) (*Job, error) {
	handler = strings.TrimSpace(handler)
	if handler == "" {
		return nil, fmt.Errorf("handler is required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	job := &Job{
		ID:        uuid.New(),
		Handler:   handler,
		Payload:   payload,
		RunAt:     runAt.UTC(),
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO scheduled_jobs (id, handler, payload_json, run_at, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(),
		job.Handler,
		[]byte(job.Payload),
		toMillis(job.RunAt),
		job.Status,
		toMillis(job.CreatedAt),
		toMillis(job.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Lease claims up to limit jobs that are due at now, or whose previous lease
// has lapsed, for owner until now+ttl. A lapsed lease counts as a failed
// attempt. Jobs are returned in run_at order.
func (s *Store) Lease(ctx context.Context, owner string, now time.Time, ttl time.Duration, limit int) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	nowMs := toMillis(now)

	rows, err := s.sqlDB.QueryContext(ctx, `
UPDATE scheduled_jobs
SET attempt_count = attempt_count + CASE WHEN status = ? THEN 1 ELSE 0 END,
	status = ?, lease_owner = ?, lease_expires_at = ?, updated_at = ?
WHERE id IN (
	SELECT id FROM scheduled_jobs
	WHERE (status = ? AND run_at <= ?)
	   OR (status = ? AND lease_expires_at <= ?)
	ORDER BY run_at ASC
	LIMIT ?
)
RETURNING `+jobColumns,
		StatusLeased,
		StatusLeased, owner, toMillis(now.Add(ttl)), nowMs,
		StatusPending, nowMs,
		StatusLeased, nowMs,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("lease jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leased job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leased jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RunAt.Before(jobs[j].RunAt) })
	return jobs, nil
}

// MarkSucceeded completes a leased job.
func (s *Store) MarkSucceeded(ctx context.Context, id uuid.UUID, owner string, now time.Time) error {
	return s.finish(ctx, "mark job succeeded", `
UPDATE scheduled_jobs
SET status = ?, attempt_count = attempt_count + 1, lease_owner = '', lease_expires_at = NULL, last_error = '', updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		StatusSucceeded, toMillis(now), id.String(), StatusLeased, owner)
}

// MarkRetry returns a leased job to pending with a new run time.
func (s *Store) MarkRetry(ctx context.Context, id uuid.UUID, owner string, now, nextRunAt time.Time, lastErr string) error {
	return s.finish(ctx, "mark job retry", `
UPDATE scheduled_jobs
SET status = ?, attempt_count = attempt_count + 1, run_at = ?, lease_owner = '', lease_expires_at = NULL, last_error = ?, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		StatusPending, toMillis(nextRunAt), lastErr, toMillis(now), id.String(), StatusLeased, owner)
}

// MarkDead dead-letters a leased job. Dead jobs are never leased again.
func (s *Store) MarkDead(ctx context.Context, id uuid.UUID, owner string, now time.Time, lastErr string) error {
	return s.finish(ctx, "mark job dead", `
UPDATE scheduled_jobs
SET status = ?, attempt_count = attempt_count + 1, lease_owner = '', lease_expires_at = NULL, last_error = ?, updated_at = ?
WHERE id = ? AND status = ? AND lease_owner = ?`,
		StatusDead, lastErr, toMillis(now), id.String(), StatusLeased, owner)
}

func (s *Store) finish(ctx context.Context, action, query string, args ...any) error {
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", action, err)
	}
	if affected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Get loads one job by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// CountByStatus returns the number of jobs in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(*) FROM scheduled_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

const jobColumns = `id, handler, payload_json, run_at, status, attempt_count, lease_owner, lease_expires_at, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job            Job
		id             string
		payload        []byte
		runAt          int64
		leaseExpiresAt sql.NullInt64
		createdAt      int64
		updatedAt      int64
	)
	if err := row.Scan(
		&id,
		&job.Handler,
		&payload,
		&runAt,
		&job.Status,
		&job.AttemptCount,
		&job.LeaseOwner,
		&leaseExpiresAt,
		&job.LastError,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", id, err)
	}
	job.ID = parsed
	job.Payload = json.RawMessage(payload)
	job.RunAt = fromMillis(runAt)
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	if leaseExpiresAt.Valid {
		t := fromMillis(leaseExpiresAt.Int64)
		job.LeaseExpiresAt = &t
	}
	return &job, nil
}
