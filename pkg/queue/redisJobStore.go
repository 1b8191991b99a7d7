package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
)

const (
	jobKeyPrefix  = "hookq:job:"
	readyKey      = "hookq:ready"
	processingKey = "hookq:processing"
	retryKey      = "hookq:retry"
	deadKey       = "hookq:dead"

	// deadListMax bounds the inspectable dead list; job records expire on
	// their own via the retention TTL.
	deadListMax = 10000
)

// enqueueScript writes the job record and pushes its ID onto the ready list
// in one atomic step, so a record can never exist without a list entry.
// SETNX makes duplicate enqueue of the same ID a no-op as long as the
// previous record still exists.
var enqueueScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 1 then
	redis.call("LPUSH", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// RedisJobStore implements JobStore on the shared Redis connection.
//
// Layout: the job record lives at hookq:job:<id> as JSON; hookq:ready and
// hookq:processing are lists of IDs rotated with BLMOVE; hookq:retry is a
// sorted set scored by next-attempt unix time; hookq:dead lists terminally
// failed IDs.
type RedisJobStore struct {
	conn      *redisconn.Manager
	retention time.Duration
}

func NewRedisJobStore(conn *redisconn.Manager, retention time.Duration) *RedisJobStore {
	return &RedisJobStore{conn: conn, retention: retention}
}

var _ JobStore = (*RedisJobStore)(nil)

func (s *RedisJobStore) Enqueue(ctx context.Context, job *Job) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "Enqueue", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.event", job.EventName),
	))
	defer span.End()

	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return ErrUnavailable
	}

	now := time.Now().UTC()
	job.Status = StatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	data, err := json.Marshal(job)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	created, err := enqueueScript.Run(ctx, rdb,
		[]string{jobKeyPrefix + job.ID, readyKey}, data, job.ID).Int()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if created == 0 {
		span.SetAttributes(attribute.Bool("job.deduped", true))
	}
	return nil
}

func (s *RedisJobStore) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return nil, ErrUnavailable
	}

	id, err := rdb.BLMove(ctx, readyKey, processingKey, "RIGHT", "LEFT", wait).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrEmptyQueue
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	job, err := s.load(ctx, rdb, id)
	if err != nil {
		// Record vanished or corrupt; drop the orphaned ID.
		_ = rdb.LRem(ctx, processingKey, 1, id).Err()
		return nil, ErrEmptyQueue
	}

	job.Status = StatusInFlight
	if err := s.save(ctx, rdb, job, 0); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisJobStore) MarkSucceeded(ctx context.Context, job *Job) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "MarkSucceeded", trace.WithAttributes(
		attribute.String("job.id", job.ID),
	))
	defer span.End()

	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return ErrUnavailable
	}

	job.Status = StatusSucceeded
	job.LastError = ""
	job.NextAttemptAt = nil
	if err := s.save(ctx, rdb, job, s.retention); err != nil {
		span.RecordError(err)
		return err
	}
	return rdb.LRem(ctx, processingKey, 1, job.ID).Err()
}

func (s *RedisJobStore) MarkRetryable(ctx context.Context, job *Job, cause error, nextAttemptAt time.Time) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "MarkRetryable", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return ErrUnavailable
	}

	job.Status = StatusRetryable
	if cause != nil {
		job.LastError = cause.Error()
	}
	at := nextAttemptAt.UTC()
	job.NextAttemptAt = &at
	if err := s.save(ctx, rdb, job, 0); err != nil {
		span.RecordError(err)
		return err
	}

	pipe := rdb.Pipeline()
	pipe.LRem(ctx, processingKey, 1, job.ID)
	pipe.ZAdd(ctx, retryKey, redis.Z{Score: float64(at.Unix()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("schedule retry for %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisJobStore) MarkDead(ctx context.Context, job *Job, cause error) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "MarkDead", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return ErrUnavailable
	}

	job.Status = StatusDead
	if cause != nil {
		job.LastError = cause.Error()
	}
	job.NextAttemptAt = nil
	if err := s.save(ctx, rdb, job, s.retention); err != nil {
		span.RecordError(err)
		return err
	}

	pipe := rdb.Pipeline()
	pipe.LRem(ctx, processingKey, 1, job.ID)
	pipe.LPush(ctx, deadKey, job.ID)
	pipe.LTrim(ctx, deadKey, 0, deadListMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("park job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisJobStore) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return 0, ErrUnavailable
	}

	ids, err := rdb.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("promote: %w", err)
	}

	promoted := 0
	for _, id := range ids {
		// ZREM decides the winner when several promoters race on an ID.
		removed, err := rdb.ZRem(ctx, retryKey, id).Result()
		if err != nil {
			return promoted, fmt.Errorf("promote %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}
		if job, err := s.load(ctx, rdb, id); err == nil {
			job.Status = StatusPending
			job.NextAttemptAt = nil
			_ = s.save(ctx, rdb, job, 0)
		}
		if err := rdb.LPush(ctx, readyKey, id).Err(); err != nil {
			return promoted, fmt.Errorf("promote %s: %w", id, err)
		}
		promoted++
	}
	return promoted, nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*Job, error) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return nil, ErrUnavailable
	}
	return s.load(ctx, rdb, id)
}

func (s *RedisJobStore) DeadJobs(ctx context.Context, limit int) ([]*Job, error) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return nil, ErrUnavailable
	}

	if limit <= 0 || limit > deadListMax {
		limit = deadListMax
	}
	ids, err := rdb.LRange(ctx, deadKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("dead jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.load(ctx, rdb, id)
		if err != nil {
			continue // record aged out of retention
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisJobStore) QueueDepth(ctx context.Context) (int64, error) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return 0, ErrUnavailable
	}
	return rdb.LLen(ctx, readyKey).Result()
}

func (s *RedisJobStore) load(ctx context.Context, rdb *redis.Client, id string) (*Job, error) {
	data, err := rdb.Get(ctx, jobKeyPrefix+id).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisJobStore) save(ctx context.Context, rdb *redis.Client, job *Job, ttl time.Duration) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := rdb.Set(ctx, jobKeyPrefix+job.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}
