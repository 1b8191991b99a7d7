package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
)

func newTestStore(t *testing.T) (*RedisJobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := redisconn.NewManager(config.RedisSettings{Addr: mr.Addr(), ConnectTimeout: time.Second})
	t.Cleanup(func() { conn.Close() })
	return NewRedisJobStore(conn, time.Hour), mr
}

func testJob(id string) *Job {
	return &Job{
		ID:          id,
		TargetURL:   "https://example.com/hook",
		EventName:   "event.created",
		Payload:     json.RawMessage(`{"title":"hi"}`),
		MaxAttempts: 3,
	}
}

func TestEnqueueDequeueRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("j1")))

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	job, err := store.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, StatusInFlight, job.Status)
	assert.Equal(t, "event.created", job.EventName)
	assert.JSONEq(t, `{"title":"hi"}`, string(job.Payload))

	depth, err = store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestEnqueueIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("dup")))
	require.NoError(t, store.Enqueue(ctx, testJob("dup")))

	depth, err := store.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "duplicate enqueue must not create a second job")
}

func TestEnqueueRecordAndReadyEntryStayInStep(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("atomic")))

	assert.True(t, mr.Exists("hookq:job:atomic"))
	ready, err := mr.List("hookq:ready")
	require.NoError(t, err)
	assert.Equal(t, []string{"atomic"}, ready, "a stored record is always reachable from the ready list")

	// A duplicate must not re-push the ID either.
	require.NoError(t, store.Enqueue(ctx, testJob("atomic")))
	ready, err = mr.List("hookq:ready")
	require.NoError(t, err)
	assert.Equal(t, []string{"atomic"}, ready)
}

func TestDequeueEmptyQueue(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Dequeue(context.Background(), 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmptyQueue)
}

func TestMarkSucceededReleasesJob(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("ok")))
	job, err := store.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	require.NoError(t, store.MarkSucceeded(ctx, job))

	stored, err := store.Get(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, stored.Status)

	// The record ages out after the retention window.
	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "ok")
	assert.Error(t, err)
}

func TestRetryFlow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("retry")))
	job, err := store.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	job.Attempt = 1
	cause := errors.New("target returned 500")
	require.NoError(t, store.MarkRetryable(ctx, job, cause, time.Now().Add(50*time.Millisecond)))

	stored, err := store.Get(ctx, "retry")
	require.NoError(t, err)
	assert.Equal(t, StatusRetryable, stored.Status)
	assert.Equal(t, "target returned 500", stored.LastError)
	require.NotNil(t, stored.NextAttemptAt)

	// Not due yet.
	promoted, err := store.PromoteDue(ctx, time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)

	// Due now.
	promoted, err = store.PromoteDue(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	again, err := store.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "retry", again.ID)
	assert.Equal(t, 1, again.Attempt)
}

func TestMarkDeadIsInspectable(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, testJob("doomed")))
	job, err := store.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	job.Attempt = job.MaxAttempts
	require.NoError(t, store.MarkDead(ctx, job, errors.New("connection refused")))

	dead, err := store.DeadJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "doomed", dead[0].ID)
	assert.Equal(t, StatusDead, dead[0].Status)
	assert.Equal(t, "connection refused", dead[0].LastError)
	assert.Equal(t, 3, dead[0].Attempt)
}

func TestDeadJobsLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, store.Enqueue(ctx, testJob(id)))
		job, err := store.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NoError(t, store.MarkDead(ctx, job, errors.New("boom")))
	}

	dead, err := store.DeadJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, dead, 2)

	dead, err = store.DeadJobs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, dead, 3, "non-positive limit lists the whole retained dead set")

	dead, err = store.DeadJobs(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, dead, 3)
}

func TestStoreUnavailable(t *testing.T) {
	conn := redisconn.NewManager(config.RedisSettings{})
	store := NewRedisJobStore(conn, time.Hour)
	ctx := context.Background()

	assert.ErrorIs(t, store.Enqueue(ctx, testJob("x")), ErrUnavailable)
	_, err := store.Dequeue(ctx, time.Millisecond)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = store.QueueDepth(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = store.PromoteDue(ctx, time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)
}
