package lock

import (
	"context"

	"github.com/google/uuid"
)

// Owner identifies the holder of a lock. It plays the role a thread plays
// for a reentrant mutex: locks taken under an Owner can only be released
// under the same Owner. An Owner must not be used by more than one
// goroutine at a time.
type Owner struct {
	id uuid.UUID
}

// NewOwner returns a new unique Owner.
func NewOwner() Owner {
	return Owner{id: uuid.New()}
}

// IsZero reports whether o is the zero Owner, which owns nothing.
func (o Owner) IsZero() bool {
	return o.id == uuid.Nil
}

func (o Owner) String() string {
	return o.id.String()
}

type ownerKey struct{}

// ContextWithOwner returns a copy of ctx carrying owner.
func ContextWithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// WithOwner returns ctx if it already carries an Owner, otherwise a copy
// of ctx carrying a new one.
func WithOwner(ctx context.Context) context.Context {
	if _, ok := OwnerFromContext(ctx); ok {
		return ctx
	}
	return ContextWithOwner(ctx, NewOwner())
}

// OwnerFromContext returns the Owner carried by ctx.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ownerKey{}).(Owner)
	if !ok || owner.IsZero() {
		return Owner{}, false
	}
	return owner, true
}
