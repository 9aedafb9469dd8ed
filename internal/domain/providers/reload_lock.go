package providers

import (
	"context"
	"time"
)

// ReloadLock serializes reloads across replicas
type ReloadLock interface {
	// Acquire obtains key for ttl. It returns a CONFLICT AppError when
	// another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
