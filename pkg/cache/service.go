package cache

import (
	"context"
	"log"
	"time"

	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
)

const (
	cachePrefix = "cache:"
	ratePrefix  = "rl:"
)

// RateDecision is the outcome of a fixed-window rate-limit check.
type RateDecision struct {
	Allowed   bool
	Remaining int
}

// Service provides best-effort caching and fixed-window rate limiting on top
// of the shared Redis connection. Every operation is total: store failures
// degrade to a cache miss, a no-op, or an allow decision, never an error.
type Service struct {
	conn *redisconn.Manager
}

func NewService(conn *redisconn.Manager) *Service {
	return &Service{conn: conn}
}

// Get returns the cached bytes for key, or false on a miss or when the store
// is unavailable.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return nil, false
	}
	val, err := rdb.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores value under key with the given TTL. A zero TTL stores the value
// without expiry. Failures are logged and swallowed.
func (s *Service) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return
	}
	if err := rdb.Set(ctx, cachePrefix+key, value, ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (s *Service) Delete(ctx context.Context, key string) {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return
	}
	if err := rdb.Del(ctx, cachePrefix+key).Err(); err != nil {
		log.Printf("cache: delete %s failed: %v", key, err)
	}
}

// Exists reports whether key is present; false when the store is unavailable.
func (s *Service) Exists(ctx context.Context, key string) bool {
	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return false
	}
	n, err := rdb.Exists(ctx, cachePrefix+key).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// IncrementAndCheck atomically increments the counter at key and compares it
// against maxCount. The window expiry is armed only on the increment that
// creates the counter, so the window is anchored at the first hit. If the
// store is unavailable the check fails open: rate limiting is protective,
// not a correctness requirement, and must never block traffic during an
// outage.
func (s *Service) IncrementAndCheck(ctx context.Context, key string, maxCount int, window time.Duration) RateDecision {
	failOpen := RateDecision{Allowed: true, Remaining: maxCount}

	rdb, ok := s.conn.Handle(ctx)
	if !ok {
		return failOpen
	}

	count, err := rdb.Incr(ctx, ratePrefix+key).Result()
	if err != nil {
		log.Printf("ratelimit: incr %s failed, failing open: %v", key, err)
		return failOpen
	}
	if count == 1 && window > 0 {
		if err := rdb.Expire(ctx, ratePrefix+key, window).Err(); err != nil {
			log.Printf("ratelimit: expire %s failed: %v", key, err)
		}
	}

	remaining := maxCount - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{Allowed: int(count) <= maxCount, Remaining: remaining}
}
