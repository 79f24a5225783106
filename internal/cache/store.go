package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache over Redis. A Store with a nil client misses every lookup.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON loads key into dest and reports whether it was a hit.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if !s.Enabled() {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			observability.CacheLookups.WithLabelValues("error").Inc()
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		observability.CacheLookups.WithLabelValues("error").Inc()
		_ = s.rdb.Del(ctx, key).Err()
		return false
	}
	observability.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

// SetJSON stores value under key for ttl. Failures are logged and swallowed.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if !s.Enabled() || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache delete failed", "keys", keys, "error", err)
	}
}

// DeletePattern removes every key matching pattern using SCAN.
func (s *Store) DeletePattern(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			s.Delete(ctx, batch...)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache scan failed", "pattern", pattern, "error", err)
	}
	s.Delete(ctx, batch...)
}
