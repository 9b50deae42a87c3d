package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scribegate/redis"
)

// Store is a typed key/value store with per-entry TTL. Load returns
// (nil, nil) for a missing or expired key.
type Store[T any] interface {
	Load(ctx context.Context, key string) (*T, error)
	Save(ctx context.Context, key string, val *T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var _ Store[struct{}] = (*redis.TypedStore[struct{}])(nil)

// New returns a Redis-backed store when client is non-nil and an
// in-process one otherwise.
func New[T any](client *redis.Client, prefix string) Store[T] {
	if client == nil {
		return NewMemory[T]()
	}
	return redis.NewTypedStore[T](client, client.Key(prefix))
}

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Store. Values are copied through JSON so callers
// never share memory with the cache, matching the Redis behavior.
type Memory[T any] struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]entry), now: time.Now}
}

// Load returns the stored value, or nil if absent or expired.
func (m *Memory[T]) Load(_ context.Context, key string) (*T, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var val T
	if err := json.Unmarshal(e.data, &val); err != nil {
		return nil, fmt.Errorf("cache unmarshal %q: %w", key, err)
	}
	return &val, nil
}

// Save stores val. A zero ttl means no expiration.
func (m *Memory[T]) Save(_ context.Context, key string, val *T, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache marshal %q: %w", key, err)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *Memory[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
