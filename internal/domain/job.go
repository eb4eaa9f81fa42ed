package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions other
// than expiry deletion.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// TimeoutErrorMessage is the sentinel error text written by the stuck-job
// reaper, distinguishing a reaped job from one whose tool reported its own
// failure.
const TimeoutErrorMessage = "Job timed out"

// Job is one unit of asynchronous tool work with a lifecycle status.
// Input and Output are opaque to the queue; the worker decodes them per tool
// slug, the queue itself only relies on jsonb equality for cache lookups.
type Job struct {
	ID           uuid.UUID
	ToolSlug     string
	Owner        Subject
	Status       JobStatus
	Priority     int
	Input        json.RawMessage
	Output       json.RawMessage
	ErrorMessage string
	Attempts     int
	MaxAttempts  int
	ProcessAfter *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RetryEligible reports whether a failed job may re-enter the pending pool.
func (j *Job) RetryEligible() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

// JobStats aggregates per-status job counts for one tool slug or globally.
type JobStats struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
	Cancelled  int64
}

// Total sums the per-status counts.
func (s JobStats) Total() int64 {
	return s.Pending + s.Processing + s.Completed + s.Failed + s.Cancelled
}
