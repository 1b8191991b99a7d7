package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
)

// Envelope is the wire format POSTed to webhook targets.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Deliverer performs a single webhook delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, job *queue.Job) error
}

// HTTPDeliverer delivers jobs over HTTP POST with a bounded timeout.
type HTTPDeliverer struct {
	client *http.Client
	now    func() time.Time
}

func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDeliverer{
		client: &http.Client{Timeout: timeout},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, job *queue.Job) error {
	body, err := json.Marshal(Envelope{
		Event:     job.EventName,
		Data:      job.Payload,
		Timestamp: d.now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("build delivery body for %s: %w", job.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.TargetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", job.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, job.EventName)
	if job.Secret != "" {
		// Sign the exact bytes being sent so the receiver can verify
		// against the raw request body.
		req.Header.Set(HeaderSignature, Sign(job.Secret, body))
	}

	// Propagate the trace context to the receiver
	propagator := otel.GetTextMapPropagator()
	propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", job.ID, job.TargetURL, err)
	}
	defer resp.Body.Close()
	// Drain whatever the target responds with so the connection can be
	// reused for the next delivery.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver %s to %s: unexpected status %d", job.ID, job.TargetURL, resp.StatusCode)
	}
	return nil
}
