// Package lock provides a distributed per-resource lock over Redis so that
// multiple server instances never ingest the same resource concurrently.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connexus-ai/docforge/internal/service"
)

const keyPrefix = "docforge:ingest-lock:"

// RedisLock implements service.Locker using SETNX with a TTL as the mutex
// primitive.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a RedisLock. ttl bounds how long a lock survives if its
// holder crashes without releasing it.
func New(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{client: client, ttl: ttl}
}

var _ service.Locker = (*RedisLock)(nil)

// Acquire attempts to take the lock for resourceID. ok is false, with a nil
// error, when another holder already has it — the caller's fast-path
// duplicate-ingest skip.
func (l *RedisLock) Acquire(ctx context.Context, resourceID string) (release func(), ok bool, err error) {
	key := keyPrefix + resourceID
	acquired, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock.Acquire: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release = func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Del(releaseCtx, key)
	}
	return release, true, nil
}
