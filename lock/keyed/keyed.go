// Package keyed implements a reentrant lock manager over arbitrary comparable
// keys, with a global lock that excludes every key lock while held.
package keyed

import (
	"context"
	"reflect"
	"time"

	"github.com/enverbisevac/entitylock/errors"
	"github.com/enverbisevac/entitylock/lock"
	"github.com/go-logr/logr"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	_ lock.EntityLocker[string] = (*Manager[string])(nil)
)

var errWaitExpired = errors.New("lock wait expired")

// Manager locks entities by key. Each locked key has one registry record
// owned by a lock.Owner; each held lock also holds one reader permit of the
// global gate, so the global lock can only be taken when no key is locked.
type Manager[K comparable] struct {
	config   Config
	registry *xsync.MapOf[K, *lockState]
	gate     *gate
	metrics  *metrics
}

// New creates a new keyed lock manager.
func New[K comparable](options ...Option) *Manager[K] {
	config := newConfig(options...)
	return &Manager[K]{
		config:   config,
		registry: xsync.NewMapOf[K, *lockState](),
		gate:     newGate(),
		metrics:  newMetrics(config),
	}
}

// Lock acquires the lock for key on behalf of the Owner carried by ctx,
// blocking until it is available. Cancellation of ctx is ignored; use
// LockInterruptibly or TryLock to bound the wait.
func (m *Manager[K]) Lock(ctx context.Context, key K) error {
	owner, err := m.acquirer(ctx, key)
	if err != nil {
		return err
	}

	started := time.Now()
	ctx = context.WithoutCancel(ctx)
	contended, err := m.lock(ctx, key, owner)
	if err != nil {
		return errors.Internal("lock: acquiring %v", key).Source(err)
	}
	m.metrics.attempt(ctx, resultAcquired, started, contended)
	return nil
}

// LockInterruptibly acquires the lock for key, blocking until it is
// available or ctx is done. When ctx is done first it returns a Cancelled
// error and nothing is held.
func (m *Manager[K]) LockInterruptibly(ctx context.Context, key K) error {
	owner, err := m.acquirer(ctx, key)
	if err != nil {
		return err
	}

	started := time.Now()
	contended, err := m.lock(ctx, key, owner)
	if err != nil {
		m.metrics.attempt(ctx, resultCancelled, started, contended)
		m.logger(ctx).V(1).Info("entity lock cancelled", "key", key, "owner", owner)
		return errors.Cancelled("lock: acquiring %v cancelled", key).Source(err)
	}
	m.metrics.attempt(ctx, resultAcquired, started, contended)
	return nil
}

// TryLock acquires the lock for key waiting at most timeout in total. It
// returns false, holding nothing, if the lock could not be acquired in time.
// A zero timeout tries once without waiting.
func (m *Manager[K]) TryLock(ctx context.Context, key K, timeout time.Duration) (bool, error) {
	owner, err := m.acquirer(ctx, key)
	if err != nil {
		return false, err
	}
	if timeout < 0 {
		return false, errors.InvalidArgument("lock: negative timeout %s", timeout)
	}

	started := time.Now()
	waitCtx, cancel := context.WithTimeoutCause(ctx, timeout, errWaitExpired)
	defer cancel()

	contended, err := m.lock(waitCtx, key, owner)
	switch {
	case err == nil:
		m.metrics.attempt(ctx, resultAcquired, started, contended)
		return true, nil
	case ctx.Err() == nil && errors.Is(err, errWaitExpired):
		m.metrics.attempt(ctx, resultTimeout, started, contended)
		m.logger(ctx).V(1).Info("entity lock timed out", "key", key, "owner", owner, "timeout", timeout)
		return false, nil
	default:
		m.metrics.attempt(ctx, resultCancelled, started, contended)
		m.logger(ctx).V(1).Info("entity lock cancelled", "key", key, "owner", owner)
		return false, errors.Cancelled("lock: acquiring %v cancelled", key).Source(err)
	}
}

// Unlock releases one hold of the lock for key. It fails with a
// LockNotOwned error if key is not locked by the Owner carried by ctx.
func (m *Manager[K]) Unlock(ctx context.Context, key K) error {
	owner, ok := lock.OwnerFromContext(ctx)
	state, found := m.registry.Load(key)
	if !ok || !found || state.owner != owner {
		return errors.LockNotOwned("lock: %v is not held by the caller", key)
	}

	m.release(ctx, key, state)
	m.gate.runlock(owner)
	return nil
}

// AcquireGlobalLock waits until no entity lock is held by anyone else and
// then blocks every new entity lock until ReleaseGlobalLock. It is
// reentrant for the Owner carried by ctx, and that owner may still lock
// entities while holding it.
func (m *Manager[K]) AcquireGlobalLock(ctx context.Context) error {
	owner, ok := lock.OwnerFromContext(ctx)
	if !ok {
		return errors.InvalidArgument("lock: context carries no owner")
	}

	log := m.logger(ctx)
	log.V(1).Info("acquiring global lock", "owner", owner)
	if err := m.gate.lock(ctx, owner); err != nil {
		if errors.Is(err, errHoldsPermits) {
			return errors.Aborted("lock: global lock requested by %s while it holds entity locks", owner)
		}
		log.V(1).Info("global lock cancelled", "owner", owner)
		return errors.Cancelled("lock: acquiring global lock cancelled").Source(err)
	}
	m.metrics.globalAcquired(ctx)
	return nil
}

// ReleaseGlobalLock releases one hold of the global lock.
func (m *Manager[K]) ReleaseGlobalLock(ctx context.Context) error {
	owner, ok := lock.OwnerFromContext(ctx)
	if !ok || !m.gate.unlock(owner) {
		return errors.LockNotOwned("lock: global lock is not held by the caller")
	}
	m.logger(ctx).V(1).Info("released global lock", "owner", owner)
	return nil
}

// WithLock locks key, runs fn and unlocks key. An unlock error is returned
// only if fn succeeded.
func (m *Manager[K]) WithLock(ctx context.Context, key K, fn func(ctx context.Context) error) (err error) {
	if err := m.Lock(ctx, key); err != nil {
		return err
	}
	defer func() {
		if uerr := m.Unlock(ctx, key); uerr != nil {
			if err == nil {
				err = uerr
			} else {
				m.logger(ctx).Error(uerr, "failed to release entity lock", "key", key)
			}
		}
	}()
	return fn(ctx)
}

// WithGlobalLock acquires the global lock, runs fn and releases it.
func (m *Manager[K]) WithGlobalLock(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := m.AcquireGlobalLock(ctx); err != nil {
		return err
	}
	defer func() {
		if rerr := m.ReleaseGlobalLock(ctx); rerr != nil {
			if err == nil {
				err = rerr
			} else {
				m.logger(ctx).Error(rerr, "failed to release global lock")
			}
		}
	}()
	return fn(ctx)
}

// IsLocked reports whether key is currently locked by anyone.
func (m *Manager[K]) IsLocked(key K) bool {
	_, ok := m.registry.Load(key)
	return ok
}

// HoldCount returns how many times the Owner carried by ctx holds key.
func (m *Manager[K]) HoldCount(ctx context.Context, key K) int {
	owner, ok := lock.OwnerFromContext(ctx)
	if !ok {
		return 0
	}
	state, found := m.registry.Load(key)
	if !found || state.owner != owner {
		return 0
	}
	return state.holdCount
}

// Len returns the number of locked keys.
func (m *Manager[K]) Len() int {
	return m.registry.Size()
}

// lock claims key for owner and takes a reader permit. On failure it
// returns the cause of ctx with no record hold and no permit left behind.
func (m *Manager[K]) lock(ctx context.Context, key K, owner lock.Owner) (bool, error) {
	state, contended, err := m.claim(ctx, key, owner)
	if err != nil {
		return contended, err
	}

	state.holdCount++
	if state.holdCount == 1 {
		m.metrics.keyLocked(ctx, 1)
	}

	if err := m.gate.rlock(ctx, owner); err != nil {
		m.release(ctx, key, state)
		return contended, err
	}
	return contended, nil
}

// claim resolves the record of key until it belongs to owner, waiting for
// each foreign record to be retired.
func (m *Manager[K]) claim(ctx context.Context, key K, owner lock.Owner) (*lockState, bool, error) {
	var contended bool
	for {
		state, _ := m.registry.LoadOrCompute(key, func() *lockState {
			return newLockState(owner)
		})
		if state.owner == owner {
			return state, contended, nil
		}

		if !contended {
			contended = true
			m.logger(ctx).V(1).Info("waiting for entity lock", "key", key, "owner", owner, "holder", state.owner)
		}

		select {
		case <-state.released:
		case <-ctx.Done():
			return nil, contended, context.Cause(ctx)
		}
	}
}

// release drops one hold of state; the last one removes the record and
// wakes its waiters.
func (m *Manager[K]) release(ctx context.Context, key K, state *lockState) {
	state.holdCount--
	if state.holdCount > 0 {
		return
	}

	m.registry.Compute(key, func(current *lockState, loaded bool) (*lockState, bool) {
		if loaded && current != state {
			return current, false
		}
		return current, true
	})
	state.retire()
	m.metrics.keyLocked(ctx, -1)
}

func (m *Manager[K]) acquirer(ctx context.Context, key K) (lock.Owner, error) {
	if isNil(key) {
		return lock.Owner{}, errors.InvalidArgument("lock: entity key must not be nil")
	}
	owner, ok := lock.OwnerFromContext(ctx)
	if !ok {
		return lock.Owner{}, errors.InvalidArgument("lock: context carries no owner")
	}
	return owner, nil
}

func (m *Manager[K]) logger(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx).WithName(m.config.Name)
}

func isNil(key any) bool {
	v := reflect.ValueOf(key)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}
