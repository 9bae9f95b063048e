package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates the key was absent or expired.
var ErrMiss = errors.New("platform/cache: miss")

// Snapshot caches JSON-encoded read models with a short TTL.
type Snapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshot builds a Snapshot cache. A nil client disables caching.
func NewSnapshot(client *redis.Client, ttl time.Duration) *Snapshot {
	return &Snapshot{client: client, ttl: ttl}
}

// Get decodes the cached value into target.
func (s *Snapshot) Get(ctx context.Context, key string, target any) error {
	if s == nil || s.client == nil {
		return ErrMiss
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Set stores value under key for the configured TTL.
func (s *Snapshot) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

// Invalidate drops the keys after a write.
func (s *Snapshot) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
