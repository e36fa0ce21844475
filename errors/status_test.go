package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestLockNotOwnedWithDetail(t *testing.T) {
	type holder struct {
		Key   string `json:"key"`
		Owner string `json:"owner"`
	}

	err := LockNotOwned("key %q is held by another owner", "order-1").Detail(holder{
		Key:   "order-1",
		Owner: "owner-a",
	})

	h := Detail[holder](err)

	if h == nil || h.Owner != "owner-a" {
		t.Fatalf("expected owner-a detail, got: %v", h)
	}
	if !IsLockNotOwned(err) {
		t.Errorf("expected lock not owned error, got code: %s", AsCode(err))
	}
}

func TestCancelledUnwrapsContextError(t *testing.T) {
	err := Cancelled("lock %d cancelled", 1).Source(context.Canceled)

	if !IsCancelled(err) {
		t.Errorf("expected cancelled code, got: %s", AsCode(err))
	}
	if !Is(err, context.Canceled) {
		t.Errorf("expected err to wrap context.Canceled")
	}
	if Source(err) != context.Canceled {
		t.Errorf("expected source context.Canceled, got: %v", Source(err))
	}
	if err.Error() != "lock 1 cancelled: context canceled" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestAsCodeWrapped(t *testing.T) {
	err := fmt.Errorf("unlock: %w", InvalidArgument("key must not be nil"))

	if !IsStatus(err) {
		t.Fatalf("expected wrapped status")
	}
	if AsCode(err) != CodeInvalidArgument {
		t.Errorf("expected %s, got: %s", CodeInvalidArgument, AsCode(err))
	}
	if Message(err) != "key must not be nil" {
		t.Errorf("unexpected message: %s", Message(err))
	}
}

func TestAsCodePlainError(t *testing.T) {
	if AsCode(nil) != "" {
		t.Errorf("expected empty code for nil")
	}
	if AsCode(New("boom")) != CodeInternal {
		t.Errorf("expected internal code for non status error")
	}
	if IsStatus(New("boom")) {
		t.Errorf("plain error is not a status")
	}
}
