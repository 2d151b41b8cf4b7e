// Package lock serializes work on a single key, either inside one process
// or across instances through Redis.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context expired.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker hands out exclusive locks per key. The returned release function
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
