package queue

import (
	"encoding/json"
	"time"
)

// Status represents the delivery status of a webhook job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusRetryable Status = "failed_retryable"
	StatusDead      Status = "failed_terminal"
)

// DefaultMaxAttempts bounds delivery retries when the caller does not say.
const DefaultMaxAttempts = 3

// Job represents one webhook delivery stored in the queue. The worker pool
// mutates Attempt/Status/LastError; TargetURL, Payload and Secret are fixed
// at enqueue time.
type Job struct {
	ID            string          `json:"id"`
	TargetURL     string          `json:"target_url"`
	EventName     string          `json:"event_name"`
	Payload       json.RawMessage `json:"payload"`
	PayloadType   string          `json:"payload_type,omitempty"` // content-type hint, defaults to application/json
	Secret        string          `json:"secret,omitempty"`
	Status        Status          `json:"status"`
	Attempt       int             `json:"attempt"`
	MaxAttempts   int             `json:"max_attempts"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt *time.Time      `json:"next_attempt_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanRetry reports whether the job has retry budget left.
func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
