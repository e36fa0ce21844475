package lock

import (
	"context"
	"time"
)

// Locker represents a lock on a single key that can be acquired and released.
type Locker interface {
	// Lock acquires the lock, blocking until it's available or context is cancelled.
	Lock(ctx context.Context) error

	// TryLock attempts to acquire the lock without blocking.
	// Returns true if the lock was acquired, false otherwise.
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock.
	Unlock(ctx context.Context) error
}

// Service provides methods to create locks.
type Service interface {
	// NewLock creates a new lock with the given key.
	NewLock(key string) Locker
}

// EntityLocker locks individual entities by key and supports a global lock
// that excludes every entity lock while held.
//
// Locks are reentrant and owned by the Owner carried in ctx (see WithOwner).
// Every successful lock must be paired with one Unlock, and every
// AcquireGlobalLock with one ReleaseGlobalLock, under the same Owner.
type EntityLocker[K comparable] interface {
	// Lock acquires the lock for key. Context cancellation is ignored.
	Lock(ctx context.Context, key K) error

	// LockInterruptibly acquires the lock for key, giving up when ctx is done.
	LockInterruptibly(ctx context.Context, key K) error

	// TryLock acquires the lock for key waiting at most timeout.
	// Returns false if the lock was not acquired in time.
	TryLock(ctx context.Context, key K, timeout time.Duration) (bool, error)

	// Unlock releases one hold of the lock for key.
	Unlock(ctx context.Context, key K) error

	// AcquireGlobalLock waits until no entity lock is held and blocks new
	// entity locks until ReleaseGlobalLock.
	AcquireGlobalLock(ctx context.Context) error

	// ReleaseGlobalLock releases one hold of the global lock.
	ReleaseGlobalLock(ctx context.Context) error
}
