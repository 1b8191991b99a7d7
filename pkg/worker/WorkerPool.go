package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/metrics"
	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

const dequeueWait = 2 * time.Second

// Archiver persists terminal jobs outside Redis for long-term audit.
type Archiver interface {
	Archive(ctx context.Context, job *queue.Job) error
}

// DeadLetterNotifier announces terminally failed jobs to operator tooling.
type DeadLetterNotifier interface {
	Announce(ctx context.Context, job *queue.Job) error
}

// Pool runs N concurrent delivery workers plus one promoter loop that moves
// due retries back onto the ready list. Workers are independent; there is no
// ordering guarantee between jobs.
type Pool struct {
	store     queue.JobStore
	deliverer Deliverer
	archiver  Archiver           // optional
	notifier  DeadLetterNotifier // optional
	tracer    trace.Tracer

	concurrency     int
	maxAttempts     int
	backoff         ExponentialBackoff
	promoteInterval time.Duration
}

func NewPool(store queue.JobStore, deliverer Deliverer, cfg config.WorkerSettings) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	promote := cfg.PromoteInterval
	if promote <= 0 {
		promote = time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = queue.DefaultMaxAttempts
	}
	return &Pool{
		store:           store,
		deliverer:       deliverer,
		tracer:          otel.Tracer("hookrelay"),
		concurrency:     concurrency,
		maxAttempts:     maxAttempts,
		backoff:         ExponentialBackoff{Base: cfg.BackoffBase, Max: cfg.BackoffMax},
		promoteInterval: promote,
	}
}

// WithArchiver attaches a terminal-job archive.
func (p *Pool) WithArchiver(a Archiver) *Pool {
	p.archiver = a
	return p
}

// WithNotifier attaches a dead-letter notifier.
func (p *Pool) WithNotifier(n DeadLetterNotifier) *Pool {
	p.notifier = n
	return p
}

// Run blocks until ctx is canceled. In-flight delivery attempts finish or
// time out before workers exit; nothing is abandoned mid-HTTP-call.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.workerLoop(ctx, n)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.promoterLoop(ctx)
	}()

	wg.Wait()
}

func (p *Pool) workerLoop(ctx context.Context, n int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.Dequeue(ctx, dequeueWait)
		if err != nil {
			if err == queue.ErrEmptyQueue {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker %d: dequeue failed: %v", n, err)
			time.Sleep(dequeueWait)
			continue
		}

		// A claimed job is processed to completion even when ctx is
		// canceled mid-delivery; the HTTP client timeout bounds the
		// attempt and the bookkeeping writes must still land.
		p.process(context.WithoutCancel(ctx), job)
	}
}

func (p *Pool) process(ctx context.Context, job *queue.Job) {
	ctx, span := p.tracer.Start(ctx, "ProcessWebhookJob", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.event", job.EventName),
		attribute.String("job.target_url", job.TargetURL),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	start := time.Now()
	err := p.deliverer.Deliver(ctx, job)
	metrics.DeliveryDurationSeconds.Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.DeliveriesTotal.WithLabelValues("success").Inc()
		if markErr := p.store.MarkSucceeded(ctx, job); markErr != nil {
			log.Printf("Failed to mark job %s succeeded: %v", job.ID, markErr)
			span.RecordError(markErr)
		}
		p.archive(ctx, job)
		return
	}

	log.Printf("Failed to deliver job %s: %v", job.ID, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.DeliveriesTotal.WithLabelValues("failure").Inc()

	// Jobs enqueued without a retry ceiling inherit the pool's configured one.
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = p.maxAttempts
	}

	job.Attempt++
	if job.CanRetry() {
		delay := p.backoff.Delay(job.Attempt)
		metrics.RetriesScheduledTotal.Inc()
		if markErr := p.store.MarkRetryable(ctx, job, err, time.Now().Add(delay)); markErr != nil {
			log.Printf("Failed to schedule retry for job %s: %v", job.ID, markErr)
			span.RecordError(markErr)
		}
		return
	}

	metrics.DeadLetterTotal.Inc()
	if markErr := p.store.MarkDead(ctx, job, err); markErr != nil {
		log.Printf("Failed to park job %s: %v", job.ID, markErr)
		span.RecordError(markErr)
	}
	p.archive(ctx, job)
	if p.notifier != nil {
		if nErr := p.notifier.Announce(ctx, job); nErr != nil {
			log.Printf("Failed to announce dead job %s: %v", job.ID, nErr)
			span.RecordError(nErr)
		}
	}
}

func (p *Pool) archive(ctx context.Context, job *queue.Job) {
	if p.archiver == nil {
		return
	}
	if err := p.archiver.Archive(ctx, job); err != nil {
		log.Printf("Failed to archive job %s: %v", job.ID, err)
	}
}

func (p *Pool) promoterLoop(ctx context.Context) {
	ticker := time.NewTicker(p.promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := p.store.PromoteDue(ctx, now); err != nil && err != queue.ErrUnavailable {
				log.Printf("Failed to promote due retries: %v", err)
			}
			if depth, err := p.store.QueueDepth(ctx); err == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
		}
	}
}
