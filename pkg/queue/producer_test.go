package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
)

func newTestProducer(t *testing.T) (*Producer, *RedisJobStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := redisconn.NewManager(config.RedisSettings{Addr: mr.Addr(), ConnectTimeout: time.Second})
	t.Cleanup(func() { conn.Close() })
	store := NewRedisJobStore(conn, time.Hour)
	return NewProducer(store, 0), store
}

func TestEnqueueValidation(t *testing.T) {
	producer, _ := newTestProducer(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		job         *Job
		expectedErr string
	}{
		{
			name:        "nil job",
			job:         nil,
			expectedErr: "job is required",
		},
		{
			name:        "relative target URL",
			job:         &Job{TargetURL: "/hook", EventName: "e"},
			expectedErr: "must be absolute",
		},
		{
			name:        "unsupported scheme",
			job:         &Job{TargetURL: "ftp://example.com/hook", EventName: "e"},
			expectedErr: "must be absolute",
		},
		{
			name:        "missing event name",
			job:         &Job{TargetURL: "https://example.com/hook"},
			expectedErr: "event name is required",
		},
		{
			name: "payload not JSON",
			job: &Job{
				TargetURL: "https://example.com/hook",
				EventName: "e",
				Payload:   json.RawMessage("{nope"),
			},
			expectedErr: "not valid JSON",
		},
		{
			name: "valid job",
			job: &Job{
				TargetURL: "https://example.com/hook",
				EventName: "e",
				Payload:   json.RawMessage(`{"a":1}`),
			},
			expectedErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := producer.Enqueue(ctx, tt.job)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestEnqueueAssignsDefaults(t *testing.T) {
	producer, store := newTestProducer(t)
	ctx := context.Background()

	job := &Job{TargetURL: "https://example.com/hook", EventName: "e"}
	require.NoError(t, producer.Enqueue(ctx, job))

	assert.NotEmpty(t, job.ID, "an ID is generated when the caller supplies none")
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
	assert.Equal(t, "application/json", job.PayloadType)

	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestFireNeverReturnsError(t *testing.T) {
	// No store behind the producer at all: Fire must swallow the failure.
	conn := redisconn.NewManager(config.RedisSettings{})
	producer := NewProducer(NewRedisJobStore(conn, time.Hour), 3)

	assert.NotPanics(t, func() {
		producer.Fire(context.Background(), "", "https://example.com/hook", "e", json.RawMessage(`{}`), "")
		producer.Fire(context.Background(), "", "not a url", "e", nil, "")
	})
}
