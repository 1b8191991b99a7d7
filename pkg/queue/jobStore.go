package queue

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyQueue is returned by Dequeue when no job became ready within the
// wait window.
var ErrEmptyQueue = errors.New("queue: no job ready")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("queue: backing store unavailable")

// JobStore defines the durable queue operations for webhook jobs.
type JobStore interface {
	// Enqueue durably records the job and makes it ready for pickup.
	// Enqueueing an ID that already exists is a no-op (idempotent enqueue).
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue blocks up to wait for a ready job and marks it in-flight.
	Dequeue(ctx context.Context, wait time.Duration) (*Job, error)
	// MarkSucceeded records a successful delivery and releases the job.
	MarkSucceeded(ctx context.Context, job *Job) error
	// MarkRetryable re-arms the job for a later attempt at nextAttemptAt.
	MarkRetryable(ctx context.Context, job *Job, cause error, nextAttemptAt time.Time) error
	// MarkDead parks the job in the inspectable dead set.
	MarkDead(ctx context.Context, job *Job, cause error) error
	// PromoteDue moves jobs whose retry time has passed back to the ready
	// list and returns how many were promoted.
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	// Get fetches a job record by ID.
	Get(ctx context.Context, id string) (*Job, error)
	// DeadJobs lists up to limit terminally failed jobs, newest first.
	// A non-positive limit lists the whole retained dead set.
	DeadJobs(ctx context.Context, limit int) ([]*Job, error)
	// QueueDepth returns the number of ready jobs.
	QueueDepth(ctx context.Context) (int64, error)
}
