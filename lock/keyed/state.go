package keyed

import (
	"sync"

	"github.com/enverbisevac/entitylock/lock"
)

// lockState is the registry record of a locked key.
type lockState struct {
	owner lock.Owner

	// holdCount is only touched by owner.
	holdCount int

	released chan struct{}
	once     sync.Once
}

func newLockState(owner lock.Owner) *lockState {
	return &lockState{
		owner:    owner,
		released: make(chan struct{}),
	}
}

// retire wakes every waiter of the record. Safe to call more than once.
func (s *lockState) retire() {
	s.once.Do(func() {
		close(s.released)
	})
}
