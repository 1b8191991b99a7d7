package archive

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

// Repository persists terminal jobs (succeeded or failed_terminal) outside
// Redis, where the retention TTL would otherwise erase them.
type Repository interface {
	// Archive records the job's final state. Archiving the same job twice
	// overwrites the previous record.
	Archive(ctx context.Context, job *queue.Job) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

func addDBStatsToSpan(span trace.Span, system, statement string, duration time.Duration) {
	span.SetAttributes(
		attribute.String("db.system", system),
		attribute.String("db.statement", statement),
		attribute.Float64("db.execution_time_ms", float64(duration.Milliseconds())),
	)
}
