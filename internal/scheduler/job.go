package scheduler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a scheduled job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLeased    Status = "leased"
	StatusSucceeded Status = "succeeded"
	StatusDead      Status = "dead"
)

// Job is one durable deferred invocation of a named handler.
type Job struct {
	ID             uuid.UUID
	Handler        string
	Payload        json.RawMessage
	RunAt          time.Time
	Status         Status
	AttemptCount   int
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
