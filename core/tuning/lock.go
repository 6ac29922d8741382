package tuning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/siherrmann/weaver/helper"
)

// Locker guards against two tuning runs for the same user at once
type Locker interface {
	Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, userID uuid.UUID) error
}

// RedisLocker implements Locker with a per-user SET NX key. The TTL
// bounds lock lifetime if a run dies without releasing.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
	}
}

func lockKey(userID uuid.UUID) string {
	return fmt.Sprintf("weaver:tuner:lock:%v", userID)
}

// Acquire tries to take the user's tuning lock. It returns false when
// another run already holds it.
func (l *RedisLocker) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, lockKey(userID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, helper.NewError("acquire tuner lock", err)
	}
	return acquired, nil
}

// Release frees the user's tuning lock
func (l *RedisLocker) Release(ctx context.Context, userID uuid.UUID) error {
	err := l.client.Del(ctx, lockKey(userID)).Err()
	if err != nil {
		return helper.NewError("release tuner lock", err)
	}
	return nil
}
