package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore keeps JSON-encoded values of type T under prefix:key.
type TypedStore[T any] struct {
	rdb    *goredis.Client
	prefix string
}

// NewTypedStore returns a store on client. An empty prefix stores bare keys.
func NewTypedStore[T any](client *Client, prefix string) *TypedStore[T] {
	return &TypedStore[T]{rdb: client.rdb, prefix: prefix}
}

func (s *TypedStore[T]) key(k string) string {
	if s.prefix != "" {
		k = s.prefix + ":" + k
	}
	return k
}

func storeError(op, key string, err error) error {
	return fmt.Errorf("redis store: %s %q: %w", op, key, err)
}

// Load returns (nil, nil) when key is absent or has expired.
func (s *TypedStore[T]) Load(ctx context.Context, key string) (*T, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, storeError("load", key, err)
	}
	val := new(T)
	if err := json.Unmarshal(data, val); err != nil {
		return nil, storeError("decode", key, err)
	}
	return val, nil
}

// Save overwrites key. The entry never expires when ttl is zero.
func (s *TypedStore[T]) Save(ctx context.Context, key string, val *T, ttl time.Duration) error {
	if ttl < 0 {
		return storeError("save", key, fmt.Errorf("negative ttl %s", ttl))
	}
	data, err := json.Marshal(val)
	if err != nil {
		return storeError("encode", key, err)
	}
	if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return storeError("save", key, err)
	}
	return nil
}

func (s *TypedStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return storeError("delete", key, err)
	}
	return nil
}
