// Package runlock provides a Redis-backed lock so only one monitor
// instance runs a reconciliation pass against a site at a time.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// RedisLock guards a pass with SET NX plus a TTL. The TTL bounds how
// long a crashed holder can block other instances.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock connects to Redis and verifies the connection.
func NewRedisLock(redisURL, key string) (*RedisLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisLockWithClient(client, key), nil
}

// NewRedisLockWithClient creates a lock from an existing Redis client.
func NewRedisLockWithClient(client *redis.Client, key string) *RedisLock {
	if key == "" {
		key = "psgmonitor:pass"
	}
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    defaultTTL,
	}
}

// Acquire takes the lock. It reports false without an error when
// another instance already holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, "held", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire pass lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock. Releasing an expired lock is a no-op.
func (l *RedisLock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("release pass lock: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (l *RedisLock) Close() error {
	return l.client.Close()
}
