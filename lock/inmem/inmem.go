package inmem

import (
	"context"
	"sync"

	"github.com/enverbisevac/entitylock/lock"
	"github.com/enverbisevac/entitylock/lock/keyed"
)

var (
	_ lock.Service = (*Service)(nil)
)

// Service implements lock.Service on top of a keyed lock manager.
type Service struct {
	manager *keyed.Manager[string]
}

// New creates a new in-memory lock service.
func New(options ...keyed.Option) *Service {
	return &Service{
		manager: keyed.New[string](options...),
	}
}

// NewLock creates a new lock with the given key. Every lock gets its own
// owner, so two locks on the same key exclude each other.
func (s *Service) NewLock(key string) lock.Locker {
	return &locker{
		service: s,
		key:     key,
		owner:   lock.NewOwner(),
	}
}

// Manager returns the keyed manager behind the service. Taking its global
// lock excludes every locker of the service.
func (s *Service) Manager() *keyed.Manager[string] {
	return s.manager
}

type locker struct {
	service *Service
	key     string
	owner   lock.Owner

	mu     sync.Mutex
	locked bool
}

func (l *locker) withOwner(ctx context.Context) context.Context {
	return lock.ContextWithOwner(ctx, l.owner)
}

// Lock acquires the lock, blocking until it's available or context is cancelled.
func (l *locker) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return nil
	}

	if err := l.service.manager.LockInterruptibly(l.withOwner(ctx), l.key); err != nil {
		return err
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *locker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return true, nil
	}

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	acquired, err := l.service.manager.TryLock(l.withOwner(ctx), l.key, 0)
	if err != nil || !acquired {
		return false, err
	}
	l.locked = true
	return true, nil
}

// Unlock releases the lock.
func (l *locker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}

	if err := l.service.manager.Unlock(l.withOwner(ctx), l.key); err != nil {
		return err
	}
	l.locked = false
	return nil
}
