package reactive

import "sync"

// Subscriber is anything that can be notified when a dependency changes.
// Tasks implement it; the host's render listener may as well.
type Subscriber interface {
	// MarkDirty notifies the subscriber that one of its dependencies changed.
	// It must be idempotent: marking an already-dirty subscriber is a no-op.
	MarkDirty()

	// ID returns a unique identifier for this subscriber.
	// Used for deduplication during subscription and batch processing.
	ID() uint64
}

// subscription is one reader→data edge: a subscriber paired with an optional
// property key. An empty key means interest in the whole container.
type subscription struct {
	sub Subscriber
	key string
}

// SubscriptionManager records which subscribers are interested in one
// reactive container, optionally scoped by property key.
//
// A subscriber's edges are replaced wholesale on each of its re-runs: the
// engine calls ClearSubscriber for every manager the subscriber had touched,
// then the new run accumulates a brand-new set through Add.
type SubscriptionManager struct {
	mu   sync.Mutex
	subs []subscription
}

// Add registers interest of sub in this container, scoped to key when key is
// non-empty. Duplicate (subscriber, key) pairs are collapsed.
func (m *SubscriptionManager) Add(sub Subscriber, key string) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := sub.ID()
	for _, existing := range m.subs {
		if existing.sub.ID() == id && existing.key == key {
			return
		}
	}
	m.subs = append(m.subs, subscription{sub: sub, key: key})
}

// ClearSubscriber removes every subscription belonging to sub across this
// container. Used both before a re-run and on teardown.
func (m *SubscriptionManager) ClearSubscriber(sub Subscriber) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := sub.ID()
	kept := m.subs[:0]
	for _, existing := range m.subs {
		if existing.sub.ID() != id {
			kept = append(kept, existing)
		}
	}
	// Zero the tail so dropped subscribers are collectable.
	for i := len(kept); i < len(m.subs); i++ {
		m.subs[i] = subscription{}
	}
	m.subs = kept
}

// Notify marks every subscriber interested in key as dirty. Subscribers
// registered without a key are interested in every key. Notification never
// re-runs a subscriber synchronously; MarkDirty only schedules it.
//
// The subscriber list is copied before iteration so a notified subscriber's
// synchronous continuation may safely re-enter this manager.
func (m *SubscriptionManager) Notify(key string) {
	m.mu.Lock()
	matched := make([]Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		if s.key == "" || key == "" || s.key == key {
			matched = append(matched, s.sub)
		}
	}
	m.mu.Unlock()

	if inBatch() {
		for _, sub := range matched {
			queuePendingDirty(sub)
		}
		return
	}
	for _, sub := range matched {
		sub.MarkDirty()
	}
}

// NotifyAll marks every registered subscriber dirty regardless of key.
func (m *SubscriptionManager) NotifyAll() {
	m.Notify("")
}

// Len reports the number of registered subscriptions.
func (m *SubscriptionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// has reports whether sub holds any subscription here. Test hook.
func (m *SubscriptionManager) has(sub Subscriber) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := sub.ID()
	for _, s := range m.subs {
		if s.sub.ID() == id {
			return true
		}
	}
	return false
}

// Trackable is implemented by reactive containers that can report their
// subscription manager. A value that cannot supply one cannot be tracked.
type Trackable interface {
	SubscriptionManager() *SubscriptionManager
}

// managerOf returns the subscription manager for a reactive container, or
// nil when the value is not trackable.
func managerOf(v any) *SubscriptionManager {
	if t, ok := v.(Trackable); ok {
		return t.SubscriptionManager()
	}
	return nil
}
