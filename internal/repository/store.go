// Package repository implements the persistence layer on top of the
// key-value store. Every piece of cross-request state (admin users,
// refresh and API token records, nonces, rate counters, the IP blocklist
// and the security-event log) lives behind the Store interface so that
// repositories can be exercised against an in-memory double in tests and
// against Redis in production.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the narrow key-value capability the repositories depend on.
// Implementations must provide per-key atomicity for SetNX, Incr and
// SlideWindow; nothing above this interface takes application-level locks.
type Store interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes a value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes only if the key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Del removes keys; missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// Keys returns all keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Incr atomically increments a counter, applying ttl when the key is
	// created by this call, and returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// SlideWindow atomically appends a timestamped entry to the key's
	// time-ordered set, prunes entries older than the trailing window and
	// returns the count of entries remaining (including the new one).
	SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
	// PushCapped prepends a value to the list at key and trims the list
	// to at most limit entries.
	PushCapped(ctx context.Context, key, value string, limit int64) error
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// slideScript performs the add-and-trim step of the sliding-window counter
// in a single round trip so two concurrent requests from the same subject
// can never both observe the pre-increment count.
var slideScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local member = ARGV[3]

    redis.call('ZREMRANGEBYSCORE', key, 0, now_ms - window_ms)
    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return redis.call('ZCARD', key)
`)

// incrScript increments a counter and applies the TTL only when this call
// created the key, so the window does not slide forward on every hit.
var incrScript = redis.NewScript(`
    local v = redis.call('INCR', KEYS[1])
    if v == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
    end
    return v
`)

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return incrScript.Run(ctx, s.rdb, []string{key}, ttl.Milliseconds()).Int64()
}

func (s *RedisStore) SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	// The member must be unique per request; two requests landing on the
	// same millisecond still count as two entries.
	member := uuid.NewString()
	return slideScript.Run(ctx, s.rdb, []string{key}, now.UnixMilli(), window.Milliseconds(), member).Int64()
}

func (s *RedisStore) PushCapped(ctx context.Context, key, value string, limit int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, limit-1)
	_, err := pipe.Exec(ctx)
	return err
}
