package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := redisconn.NewManager(config.RedisSettings{Addr: mr.Addr(), ConnectTimeout: time.Second})
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mr
}

func newUnavailableService() *Service {
	return NewService(redisconn.NewManager(config.RedisSettings{}))
}

func TestSetGetRoundtrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "greeting", []byte("hello"), time.Minute)

	val, ok := svc.Get(ctx, "greeting")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), val)
}

func TestGetMissingKey(t *testing.T) {
	svc, _ := newTestService(t)

	val, ok := svc.Get(context.Background(), "nope")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestSetExpires(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "short", []byte("lived"), 2*time.Second)

	_, ok := svc.Get(ctx, "short")
	require.True(t, ok)

	mr.FastForward(3 * time.Second)

	_, ok = svc.Get(ctx, "short")
	assert.False(t, ok)
}

func TestSetZeroTTLMeansNoExpiry(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "forever", []byte("v"), 0)
	mr.FastForward(24 * time.Hour)

	_, ok := svc.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestDeleteAndExists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Set(ctx, "k", []byte("v"), 0)
	assert.True(t, svc.Exists(ctx, "k"))

	svc.Delete(ctx, "k")
	assert.False(t, svc.Exists(ctx, "k"))
}

func TestIncrementAndCheckWindow(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	const maxCount = 5
	for i := 1; i <= maxCount; i++ {
		decision := svc.IncrementAndCheck(ctx, "api:42", maxCount, time.Minute)
		assert.True(t, decision.Allowed, "call %d should be allowed", i)
		assert.Equal(t, maxCount-i, decision.Remaining, "call %d remaining", i)
	}

	decision := svc.IncrementAndCheck(ctx, "api:42", maxCount, time.Minute)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)

	// A new window opens once the counter expires.
	mr.FastForward(2 * time.Minute)
	decision = svc.IncrementAndCheck(ctx, "api:42", maxCount, time.Minute)
	assert.True(t, decision.Allowed)
	assert.Equal(t, maxCount-1, decision.Remaining)
}

func TestUnavailableStoreDegradesSafely(t *testing.T) {
	svc := newUnavailableService()
	ctx := context.Background()

	// None of these may panic or block; protective checks fail open.
	svc.Set(ctx, "k", []byte("v"), time.Minute)
	svc.Delete(ctx, "k")

	_, ok := svc.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "k"))

	decision := svc.IncrementAndCheck(ctx, "k", 10, time.Minute)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 10, decision.Remaining)
}
