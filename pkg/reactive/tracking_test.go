package reactive

import (
	"sync"
	"testing"
)

func TestWithSubscriberRestoresPrevious(t *testing.T) {
	outer := newTestListener()
	inner := newTestListener()

	WithSubscriber(outer, func() {
		if currentSubscriber() != Subscriber(outer) {
			t.Fatal("outer subscriber not installed")
		}
		WithSubscriber(inner, func() {
			if currentSubscriber() != Subscriber(inner) {
				t.Fatal("inner subscriber not installed")
			}
		})
		if currentSubscriber() != Subscriber(outer) {
			t.Fatal("outer subscriber not restored")
		}
	})

	if currentSubscriber() != nil {
		t.Fatal("subscriber leaked past WithSubscriber")
	}
}

func TestUntrackedSuppressesSubscription(t *testing.T) {
	sig := NewSignal(42)
	l := newTestListener()

	WithSubscriber(l, func() {
		Untracked(func() {
			_ = sig.Value()
		})
	})

	if err := sig.Set(43); err != nil {
		t.Fatal(err)
	}
	if l.getDirtyCount() != 0 {
		t.Errorf("untracked read still subscribed, got %d notifications", l.getDirtyCount())
	}
}

func TestTrackingContextIsGoroutineScoped(t *testing.T) {
	l := newTestListener()

	var wg sync.WaitGroup
	var other Subscriber
	WithSubscriber(l, func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cleanupGoroutineContext()
			other = currentSubscriber()
		}()
		wg.Wait()
	})

	if other != nil {
		t.Error("subscriber leaked into spawned goroutine")
	}
}
