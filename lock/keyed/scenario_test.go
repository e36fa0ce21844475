package keyed_test

import (
	"context"
	"testing"
	"time"

	"github.com/enverbisevac/entitylock/errors"
	"github.com/enverbisevac/entitylock/lock"
	"github.com/enverbisevac/entitylock/lock/keyed"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntityLockerScenarios(t *testing.T) {
	Convey("Given a keyed lock manager and two owners", t, func() {
		m := keyed.New[int]()
		a := lock.WithOwner(context.Background())
		b := lock.WithOwner(context.Background())

		Convey("Owners locking distinct keys do not block each other", func() {
			So(m.Lock(a, 1), ShouldBeNil)

			done := make(chan error, 1)
			go func() { done <- m.Lock(b, 2) }()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(time.Second):
				t.Fatal("lock on a distinct key blocked")
			}

			So(m.Len(), ShouldEqual, 2)
			So(m.Unlock(a, 1), ShouldBeNil)
			So(m.Unlock(b, 2), ShouldBeNil)
		})

		Convey("A key locked three times needs three unlocks", func() {
			for i := 0; i < 3; i++ {
				So(m.Lock(a, 1), ShouldBeNil)
			}
			So(m.HoldCount(a, 1), ShouldEqual, 3)

			for i := 0; i < 3; i++ {
				So(m.Unlock(a, 1), ShouldBeNil)
			}

			Convey("and a fourth unlock fails", func() {
				So(errors.IsLockNotOwned(m.Unlock(a, 1)), ShouldBeTrue)
				So(m.IsLocked(1), ShouldBeFalse)
			})
		})

		Convey("When the first owner holds a key", func() {
			So(m.Lock(a, 1), ShouldBeNil)

			Convey("the other owner cannot unlock it", func() {
				So(errors.IsLockNotOwned(m.Unlock(b, 1)), ShouldBeTrue)
				So(m.HoldCount(a, 1), ShouldEqual, 1)
			})

			Convey("the other owner times out trying to lock it", func() {
				started := time.Now()
				ok, err := m.TryLock(b, 1, 200*time.Millisecond)

				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(time.Since(started), ShouldBeGreaterThanOrEqualTo, 200*time.Millisecond)
				So(m.HoldCount(b, 1), ShouldEqual, 0)
			})

			Reset(func() {
				_ = m.Unlock(a, 1)
			})
		})

		Convey("When the first owner holds the global lock", func() {
			So(m.AcquireGlobalLock(a), ShouldBeNil)

			done := make(chan error, 1)
			go func() { done <- m.Lock(b, 1) }()

			Convey("entity locks wait until it is released", func() {
				select {
				case <-done:
					t.Fatal("entity lock acquired while the global lock is held")
				case <-time.After(100 * time.Millisecond):
				}

				So(m.ReleaseGlobalLock(a), ShouldBeNil)

				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(time.Second):
					t.Fatal("entity lock not acquired after global lock release")
				}
				So(m.Unlock(b, 1), ShouldBeNil)
			})
		})
	})
}
