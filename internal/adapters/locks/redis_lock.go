package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	redisclient "github.com/zatekoja/facilitycollector/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

// RedisLock implements ReloadLock with a Redis-held lease, so replicas
// sharing one overlay store never reload at the same time.
type RedisLock struct {
	locker *redislock.Client
}

// NewRedisLock creates a lock backed by client
func NewRedisLock(client *redisclient.Client) providers.ReloadLock {
	return &RedisLock{locker: redislock.New(client.Client())}
}

// Acquire obtains key for ttl without waiting
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("lock %s is held by another instance", key))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to obtain reload lock", err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
