package redisconn

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/parlorhq/go-hookrelay/pkg/config"
)

// State tracks whether the backing store has been reached yet.
type State int

const (
	StateUnknown State = iota
	StateAvailable
	StateUnavailable
)

// Manager owns the single Redis client for the process. The client is created
// on first use and reused for the process lifetime. Once the store is found
// unreachable the manager stays unavailable; callers get a fast "no handle"
// answer instead of repeated connect timeouts.
type Manager struct {
	mu       sync.Mutex
	settings config.RedisSettings
	client   *redis.Client
	state    State
}

func NewManager(settings config.RedisSettings) *Manager {
	return &Manager{settings: settings}
}

// Handle returns the shared Redis client, dialing it on first call. The
// second return value is false when no store is configured or the store is
// unavailable; it never returns an error.
func (m *Manager) Handle(ctx context.Context) (*redis.Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateAvailable:
		return m.client, true
	case StateUnavailable:
		return nil, false
	}

	if m.settings.Addr == "" {
		log.Printf("redis: no address configured, cache/rate-limit/queue disabled")
		m.state = StateUnavailable
		return nil, false
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        m.settings.Addr,
		Password:    m.settings.Password,
		DB:          m.settings.DB,
		DialTimeout: m.settings.ConnectTimeout,
		ReadTimeout: m.settings.CommandTimeout,
	})

	pingCtx := ctx
	if m.settings.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, m.settings.ConnectTimeout)
		defer cancel()
	}
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis: connection to %s failed, marking unavailable: %v", m.settings.Addr, err)
		_ = rdb.Close()
		m.state = StateUnavailable
		return nil, false
	}

	m.client = rdb
	m.state = StateAvailable
	return m.client, true
}

// Available reports the current state without dialing.
func (m *Manager) Available() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close releases the client if one was created. Normal operation never calls
// this; it exists for tests and orderly process shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	m.state = StateUnavailable
	return err
}
