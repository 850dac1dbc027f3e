package reactive

import (
	"reflect"
	"sync"
)

// SignalFlags describe the small flag set carried by a signal.
type SignalFlags uint8

const (
	// SignalUnassigned marks a computed signal awaiting its first run.
	SignalUnassigned SignalFlags = 1 << iota

	// SignalImmutable marks a signal whose value may only be written by its
	// owning computed task, never externally.
	SignalImmutable
)

// Signal is a single mutable reactive cell with its own subscription
// manager. Reading a signal's value during a tracked block subscribes the
// current subscriber to changes.
//
// Signals created by NewSignal are externally writable. Signals owned by a
// computed task are immutable from the outside: the engine commits the
// computed result through an unexported writer, so read-side callers cannot
// mutate them by construction.
type Signal struct {
	id    uint64
	mu    sync.RWMutex
	value any
	flags SignalFlags
	subs  SubscriptionManager
}

// NewSignal creates a new externally writable signal with an initial value.
func NewSignal(initial any) *Signal {
	return &Signal{
		id:    nextID(),
		value: initial,
	}
}

// newComputedSignal creates the read-only cell owned by a computed task.
// It starts unassigned; the owning task's first run assigns it.
func newComputedSignal() *Signal {
	return &Signal{
		id:    nextID(),
		flags: SignalUnassigned | SignalImmutable,
	}
}

// NewComputedSignal creates the owned signal of a computed task without the
// task itself. Resume layers use it to rebuild a decoded task's state.
func NewComputedSignal() *Signal {
	return newComputedSignal()
}

// Value returns the current value and subscribes the current subscriber,
// if any.
func (s *Signal) Value() any {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	trackRead(&s.subs, "")
	return value
}

// Peek returns the current value without subscribing.
func (s *Signal) Peek() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the signal's value and notifies subscribers if it changed.
// Setting an immutable signal fails; only its owning computed task may
// write it.
func (s *Signal) Set(value any) error {
	s.mu.Lock()
	if s.flags&SignalImmutable != 0 {
		s.mu.Unlock()
		return ErrSignalImmutable
	}
	changed := !valuesEqual(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.subs.NotifyAll()
	}
	return nil
}

// setFromOwner commits a computed result. Only the engine calls this, from
// the signal's owning task, inside an untracked block. The unassigned flag
// is cleared exactly once per assignment.
func (s *Signal) setFromOwner(value any) {
	s.mu.Lock()
	s.value = value
	s.flags &^= SignalUnassigned
	s.mu.Unlock()

	s.subs.NotifyAll()
}

// Unassigned reports whether a computed signal is still awaiting its first
// run.
func (s *Signal) Unassigned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags&SignalUnassigned != 0
}

// Immutable reports whether this signal rejects external writes.
func (s *Signal) Immutable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags&SignalImmutable != 0
}

// ID returns the unique identifier for this signal.
func (s *Signal) ID() uint64 {
	return s.id
}

// SubscriptionManager implements Trackable.
func (s *Signal) SubscriptionManager() *SubscriptionManager {
	return &s.subs
}

// valuesEqual decides whether a write changed a value. Comparable kinds use
// ==; everything else falls back to reflect.DeepEqual.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
