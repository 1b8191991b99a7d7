package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

// Notifier announces terminally failed jobs so operators can inspect and
// replay them. Delivery jobs are never silently dropped once they reach the
// dead state.
type Notifier interface {
	// Announce publishes a dead-letter notice for the job.
	Announce(ctx context.Context, job *queue.Job) error
	// Close cleans up any resources (connections).
	Close() error
}

// deadLetterNotice is the message body published by all notifier backends.
type deadLetterNotice struct {
	JobID     string          `json:"job_id"`
	EventName string          `json:"event_name"`
	TargetURL string          `json:"target_url"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error"`
	DeadAt    time.Time       `json:"dead_at"`
}

func noticeBody(job *queue.Job) ([]byte, error) {
	return json.Marshal(deadLetterNotice{
		JobID:     job.ID,
		EventName: job.EventName,
		TargetURL: job.TargetURL,
		Payload:   job.Payload,
		Attempt:   job.Attempt,
		LastError: job.LastError,
		DeadAt:    time.Now().UTC(),
	})
}
