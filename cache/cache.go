// Package cache provides a read-through cache for coefficient lookups.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a string key/value cache with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// =============================================================================
// REDIS
// =============================================================================

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Get returns ok=false with a nil error on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// =============================================================================
// MEMORY
// =============================================================================

// Memory is an in-process Cache for tests and single-node dev runs.
type Memory struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value   string
	expires time.Time // zero means no expiry
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
