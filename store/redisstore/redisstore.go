// Package redisstore backs the script store with Redis, the deployment
// target for shared multi-process setups. The remaining-ttl sentinels of
// [scriptstash.Store] are the Redis TTL command's own convention, so values
// pass through unchanged.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tapwave/scriptstash"
)

// Store is a Redis-backed implementation of [scriptstash.Store].
type Store struct {
	client *redis.Client
}

var _ scriptstash.Store = (*Store)(nil)

// New returns a Store using the provided client. The caller keeps ownership
// of the client and its lifecycle.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open connects to Redis with the provided options and verifies the
// connection with a ping.
func Open(ctx context.Context, opt *redis.Options) (*Store, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opt.Addr, err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get fetches the value and its remaining ttl in a single pipelined round
// trip. A missing key is not an error: it returns a nil value and the
// absent sentinel.
func (s *Store) Get(ctx context.Context, key string) ([]byte, int64, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis pipeline failed: %w", err)
	}

	data, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, scriptstash.TTLAbsent, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get failed: %w", err)
	}

	// TTL reports its negative sentinels (-2 absent, -1 no expiry) as raw
	// durations, not second-scaled ones; they must pass through unscaled.
	remaining := ttl.Val()
	if remaining < 0 {
		return data, int64(remaining), nil
	}
	return data, int64(remaining / time.Second), nil
}

// Set writes data under key with the given expiry.
func (s *Store) Set(ctx context.Context, key string, data []byte, ttlSeconds int64) error {
	expiry := time.Duration(ttlSeconds) * time.Second
	if err := s.client.Set(ctx, key, data, expiry).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
