package reactive

import "testing"

func TestStoreGetTracksPerKey(t *testing.T) {
	store := NewStore(map[string]any{"a": 1, "b": 2})
	la := newTestListener()
	lb := newTestListener()

	WithSubscriber(la, func() { _ = store.Get("a") })
	WithSubscriber(lb, func() { _ = store.Get("b") })

	store.Set("a", 5)
	if la.getDirtyCount() != 1 {
		t.Errorf("expected a-reader notified once, got %d", la.getDirtyCount())
	}
	if lb.getDirtyCount() != 0 {
		t.Errorf("expected b-reader untouched, got %d", lb.getDirtyCount())
	}

	store.Set("b", 9)
	if lb.getDirtyCount() != 1 {
		t.Errorf("expected b-reader notified once, got %d", lb.getDirtyCount())
	}

	// An untracked key dirties neither.
	store.Set("z", 1)
	if la.getDirtyCount() != 1 || lb.getDirtyCount() != 1 {
		t.Error("untracked key mutation notified a tracked reader")
	}
}

func TestStoreUnchangedWriteDoesNotNotify(t *testing.T) {
	store := NewStore(map[string]any{"a": 1})
	l := newTestListener()
	WithSubscriber(l, func() { _ = store.Get("a") })

	store.Set("a", 1)
	if l.getDirtyCount() != 0 {
		t.Errorf("unchanged write notified %d times", l.getDirtyCount())
	}
}

func TestStoreDeleteNotifiesKey(t *testing.T) {
	store := NewStore(map[string]any{"a": 1})
	l := newTestListener()
	WithSubscriber(l, func() { _ = store.Get("a") })

	store.Delete("a")
	if l.getDirtyCount() != 1 {
		t.Errorf("expected delete to notify, got %d", l.getDirtyCount())
	}
	if store.Peek("a") != nil {
		t.Error("deleted key still present")
	}

	// Deleting a missing key is silent.
	store.Delete("a")
	if l.getDirtyCount() != 1 {
		t.Errorf("missing-key delete notified, got %d", l.getDirtyCount())
	}
}
