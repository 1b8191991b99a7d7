package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/google/uuid"

	"github.com/parlorhq/go-hookrelay/pkg/metrics"
)

// Producer is the enqueue side of the delivery queue, used by application
// code when a platform event should be pushed to registered webhook targets.
type Producer struct {
	store       JobStore
	maxAttempts int
}

func NewProducer(store JobStore, maxAttempts int) *Producer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Producer{store: store, maxAttempts: maxAttempts}
}

// Enqueue validates and durably records a delivery job. It returns once the
// job is recorded; it does not wait for delivery. Malformed input is
// rejected synchronously, before anything is written.
func (p *Producer) Enqueue(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("queue: job is required")
	}
	if err := validateTargetURL(job.TargetURL); err != nil {
		return err
	}
	if job.EventName == "" {
		return fmt.Errorf("queue: event name is required")
	}
	if len(job.Payload) > 0 && !json.Valid(job.Payload) {
		return fmt.Errorf("queue: payload is not valid JSON")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = p.maxAttempts
	}
	if job.PayloadType == "" {
		job.PayloadType = "application/json"
	}
	job.Attempt = 0
	return p.store.Enqueue(ctx, job)
}

// Fire is the fire-and-forget entry point: it never returns an error. A job
// dropped because the store is down is logged and lost; webhook delivery is
// a best-effort side channel and must not fail the triggering request.
func (p *Producer) Fire(ctx context.Context, jobID, targetURL, eventName string, payload json.RawMessage, secret string) {
	job := &Job{
		ID:        jobID,
		TargetURL: targetURL,
		EventName: eventName,
		Payload:   payload,
		Secret:    secret,
	}
	if err := p.Enqueue(ctx, job); err != nil {
		metrics.EnqueueDroppedTotal.Inc()
		log.Printf("queue: dropped webhook job %q (%s): %v", job.ID, eventName, err)
	}
}

func validateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("queue: invalid target URL %q: %w", raw, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("queue: target URL %q must be absolute http(s)", raw)
	}
	return nil
}
