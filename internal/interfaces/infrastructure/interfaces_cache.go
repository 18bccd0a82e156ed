package interfaces

import (
	"context"
	"time"
)

// Locker serializes maintenance jobs over a named scope
type Locker interface {
	// TryLock returns ok=false when the key is already held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Unlock releases the key only if token still owns it.
	Unlock(ctx context.Context, key, token string) error
	Health(ctx context.Context) error
}
