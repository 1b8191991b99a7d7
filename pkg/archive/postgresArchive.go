package archive

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

const insertArchiveSQL = `INSERT INTO webhook_archive
    (id, event_name, target_url, payload, status, attempt, last_error, created_at, archived_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, attempt=EXCLUDED.attempt,
    last_error=EXCLUDED.last_error, archived_at=EXCLUDED.archived_at`

type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (p *PostgresArchive) Archive(ctx context.Context, job *queue.Job) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "ArchiveJob")
	defer span.End()

	startTime := time.Now()
	_, err := p.db.ExecContext(ctx, insertArchiveSQL,
		job.ID, job.EventName, job.TargetURL, []byte(job.Payload),
		string(job.Status), job.Attempt, job.LastError, job.CreatedAt, time.Now())
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "postgresql", "ArchiveJob", time.Since(startTime))
	return nil
}

func (p *PostgresArchive) Close(ctx context.Context) error {
	return p.db.Close()
}
