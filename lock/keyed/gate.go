package keyed

import (
	"context"
	"errors"
	"sync"

	"github.com/enverbisevac/entitylock/lock"
	"golang.org/x/sync/semaphore"
)

// gateCapacity is the weight taken by the writer. Readers take 1 each.
const gateCapacity = 1 << 30

var errHoldsPermits = errors.New("owner holds reader permits")

// holding counts the reader permits of one owner. Only the first permit of
// an owner comes from the semaphore; the rest are nested on top of it so an
// owner that already holds a permit never queues behind a waiting writer.
type holding struct {
	acquired int64
	nested   int64
}

// gate is a reader/writer exclusion with per-owner reentrancy on both sides.
// The writer waits for every reader permit to drain; the semaphore queue is
// FIFO, so a waiting writer also holds back owners asking for their first
// permit.
type gate struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	writer  lock.Owner
	depth   int
	holders map[lock.Owner]*holding
}

func newGate() *gate {
	return &gate{
		sem:     semaphore.NewWeighted(gateCapacity),
		holders: make(map[lock.Owner]*holding),
	}
}

// rlock takes one reader permit for owner. On failure it returns the cause
// of ctx and nothing is held.
func (g *gate) rlock(ctx context.Context, owner lock.Owner) error {
	g.mu.Lock()
	if h, ok := g.holders[owner]; ok {
		h.nested++
		g.mu.Unlock()
		return nil
	}
	if g.depth > 0 && g.writer == owner {
		g.holders[owner] = &holding{nested: 1}
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	if !g.sem.TryAcquire(1) {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return context.Cause(ctx)
		}
	}

	g.mu.Lock()
	g.holders[owner] = &holding{acquired: 1}
	g.mu.Unlock()
	return nil
}

// runlock returns one reader permit of owner.
func (g *gate) runlock(owner lock.Owner) {
	g.mu.Lock()
	h, ok := g.holders[owner]
	if !ok {
		g.mu.Unlock()
		return
	}

	var release bool
	if h.nested > 0 {
		h.nested--
	} else {
		h.acquired--
		release = true
	}
	if h.acquired == 0 && h.nested == 0 {
		delete(g.holders, owner)
	}
	g.mu.Unlock()

	if release {
		g.sem.Release(1)
	}
}

// lock takes the writer side for owner.
func (g *gate) lock(ctx context.Context, owner lock.Owner) error {
	g.mu.Lock()
	if g.depth > 0 && g.writer == owner {
		g.depth++
		g.mu.Unlock()
		return nil
	}
	if _, ok := g.holders[owner]; ok {
		g.mu.Unlock()
		return errHoldsPermits
	}
	g.mu.Unlock()

	if !g.sem.TryAcquire(gateCapacity) {
		if err := g.sem.Acquire(ctx, gateCapacity); err != nil {
			return context.Cause(ctx)
		}
	}

	g.mu.Lock()
	g.writer = owner
	g.depth = 1
	g.mu.Unlock()
	return nil
}

// unlock releases one hold of the writer side. Reader permits the owner
// took while holding it are kept. Returns false if owner is not the writer.
func (g *gate) unlock(owner lock.Owner) bool {
	g.mu.Lock()
	if g.depth == 0 || g.writer != owner {
		g.mu.Unlock()
		return false
	}
	g.depth--
	if g.depth > 0 {
		g.mu.Unlock()
		return true
	}

	g.writer = lock.Owner{}
	n := int64(gateCapacity)
	if h, ok := g.holders[owner]; ok && h.acquired == 0 {
		// keep one semaphore unit as the owner's first permit
		h.acquired = 1
		h.nested--
		n--
	}
	g.mu.Unlock()

	g.sem.Release(n)
	return true
}

// readers returns the number of owners holding reader permits.
func (g *gate) readers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.holders)
}

func (g *gate) writerHeldBy(owner lock.Owner) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depth > 0 && g.writer == owner
}
