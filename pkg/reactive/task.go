package reactive

import (
	"sync"
	"sync/atomic"
)

// TaskKind discriminates the four kinds of reactive work. Dispatch over
// kinds is an exhaustive switch; "dirty" and "cleanup pending" remain
// orthogonal booleans on the task itself.
type TaskKind uint8

const (
	// TaskPlain is a side-effecting task that runs eagerly when scheduled.
	TaskPlain TaskKind = iota

	// TaskVisible is a side-effecting task that becomes eligible only when
	// its host trigger (visibility, document ready/idle) fires.
	TaskVisible

	// TaskResource is an asynchronous task producing a tri-state resource
	// value with optional caching and timeout.
	TaskResource

	// TaskComputed derives a value committed into the task's owned signal.
	TaskComputed
)

// String returns a human-readable name for the task kind.
func (k TaskKind) String() string {
	switch k {
	case TaskPlain:
		return "plain"
	case TaskVisible:
		return "visible"
	case TaskResource:
		return "resource"
	case TaskComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// TaskFlags is the serialized flag bitset of a task. The runtime keeps kind
// and booleans as separate fields; the bitset exists for the wire encoding.
type TaskFlags uint32

const (
	// FlagVisible marks a visible-on-trigger task.
	FlagVisible TaskFlags = 1 << iota
	// FlagPlain marks a plain eager task.
	FlagPlain
	// FlagResource marks an asynchronous resource task.
	FlagResource
	// FlagComputed marks a computed derivation.
	FlagComputed
	// FlagDirty marks a task whose dependencies changed since its last run.
	FlagDirty
	// FlagCleanup marks a task that IS a deferred cleanup callback, as
	// opposed to a task that HAS one.
	FlagCleanup
)

// kindFlag maps a kind to its flag bit.
func kindFlag(k TaskKind) TaskFlags {
	switch k {
	case TaskVisible:
		return FlagVisible
	case TaskPlain:
		return FlagPlain
	case TaskResource:
		return FlagResource
	case TaskComputed:
		return FlagComputed
	default:
		return 0
	}
}

// kindFromFlags recovers the kind from a decoded bitset.
func kindFromFlags(f TaskFlags) (TaskKind, bool) {
	switch {
	case f&FlagVisible != 0:
		return TaskVisible, true
	case f&FlagPlain != 0:
		return TaskPlain, true
	case f&FlagResource != 0:
		return TaskResource, true
	case f&FlagComputed != 0:
		return TaskComputed, true
	default:
		return 0, false
	}
}

// Cleanup is a function registered by a task body to undo its side effects.
// It is invoked before the task's next run and on teardown. Panics inside a
// cleanup are caught and logged, never propagated.
type Cleanup func()

// Body signatures by task kind.
type (
	// TaskFunc is the body of a plain or visible task. Tracking is opt-in
	// per read through the TaskCtx; the returned Cleanup, if any, joins the
	// task's cleanup list.
	TaskFunc func(ctx *TaskCtx) (Cleanup, error)

	// ComputedFunc is the body of a computed task. The whole execution is
	// attributed to the task; the returned value is committed to the
	// task's signal.
	ComputedFunc func() (any, error)

	// ResourceFunc is the body of a resource task.
	ResourceFunc func(ctx *ResourceCtx) (any, error)
)

// BodyLoader resolves a lazily-loaded task body from its opaque symbol.
// The engine never assumes a body is already resident in memory.
type BodyLoader interface {
	// LoadBody returns the callable for symbol: a TaskFunc, ComputedFunc
	// or ResourceFunc depending on the task kind.
	LoadBody(symbol string) (any, error)
}

// BodyRef is a lazily-resolvable reference to a task body. A reference
// created locally carries its function; one reconstructed from a serialized
// token resolves through the container's BodyLoader on first use.
type BodyRef struct {
	symbol string

	mu sync.Mutex
	fn any
}

// NewBodyRef creates a resident body reference. The symbol is the opaque
// token used when the owning task is serialized.
func NewBodyRef(symbol string, fn any) *BodyRef {
	return &BodyRef{symbol: symbol, fn: fn}
}

// LazyBodyRef creates a reference whose function is not yet resident; it
// resolves through the container's loader when the task first runs.
func LazyBodyRef(symbol string) *BodyRef {
	return &BodyRef{symbol: symbol}
}

// Symbol returns the opaque reference token.
func (b *BodyRef) Symbol() string {
	return b.symbol
}

// Resolved reports whether the body function is resident.
func (b *BodyRef) Resolved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fn != nil
}

// resolve returns the body callable, loading it through the container's
// BodyLoader if it is not resident.
func (b *BodyRef) resolve(c *Container) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fn != nil {
		return b.fn, nil
	}
	if c == nil || c.loader == nil {
		return nil, ErrBodyNotResolved
	}
	fn, err := c.loader.LoadBody(b.symbol)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrBodyNotResolved
	}
	b.fn = fn
	return fn, nil
}

// Task is the unit of re-executable reactive work. One task exists per
// declaration site within its host element, identified by a sequential
// index that stays stable across serialize/resume.
type Task struct {
	id    uint64
	kind  TaskKind
	index int
	el    *Element
	body  *BodyRef

	// dirty means a dependency changed and the task must re-run before its
	// result is trusted again. Idempotent flag, not a counter.
	dirty atomic.Bool

	// isCleanup distinguishes "this task IS a deferred cleanup callback"
	// from "this task HAS a cleanup callback".
	isCleanup atomic.Bool

	// destroy is the aggregated cleanup from the previous run. Non-nil
	// means cleanup is pending.
	destroyMu sync.Mutex
	destroy   Cleanup

	// state is nil for plain/visible tasks, *ResourceState for resources,
	// *Signal for computed tasks.
	state any

	// waitOn, when non-nil on a resource task, gates the body until the
	// channel closes. Used to sequence resources.
	waitOn <-chan struct{}

	// managers lists every subscription manager this task subscribed to
	// during its last run, so the whole set can be invalidated before the
	// next run and detached on teardown.
	managersMu sync.Mutex
	managers   []*SubscriptionManager

	destroyed atomic.Bool
}

// newTask wires a task to its host element. Callers go through the Element
// constructors, which assign the declaration-order index.
func newTask(kind TaskKind, index int, el *Element, body *BodyRef, state any) *Task {
	return &Task{
		id:    nextID(),
		kind:  kind,
		index: index,
		el:    el,
		body:  body,
		state: state,
	}
}

// ID implements Subscriber.
func (t *Task) ID() uint64 { return t.id }

// Kind returns the task kind.
func (t *Task) Kind() TaskKind { return t.kind }

// Index returns the declaration-order index within the host element.
func (t *Task) Index() int { return t.index }

// Host returns the owning host element.
func (t *Task) Host() *Element { return t.el }

// Body returns the task's body reference.
func (t *Task) Body() *BodyRef { return t.body }

// Dirty reports whether the task must re-run.
func (t *Task) Dirty() bool { return t.dirty.Load() }

// Destroyed reports whether the task has been torn down.
func (t *Task) Destroyed() bool { return t.destroyed.Load() }

// Signal returns the owned signal of a computed task, or nil.
func (t *Task) Signal() *Signal {
	s, _ := t.state.(*Signal)
	return s
}

// Resource returns the resource state of a resource task, or nil.
func (t *Task) Resource() *ResourceState {
	r, _ := t.state.(*ResourceState)
	return r
}

// State returns the raw state payload.
func (t *Task) State() any { return t.state }

// WaitOn gates a resource task's body on ch: the body does not run until ch
// closes. Sequencing only; it has no effect on non-resource tasks.
func (t *Task) WaitOn(ch <-chan struct{}) {
	t.waitOn = ch
}

// Flags derives the serialized bitset from the task's current state.
func (t *Task) Flags() TaskFlags {
	f := kindFlag(t.kind)
	if t.dirty.Load() {
		f |= FlagDirty
	}
	if t.isCleanup.Load() {
		f |= FlagCleanup
	}
	return f
}

// MarkDirty implements Subscriber. The flag is idempotent: within one
// mutation batch a task is handed to the scheduler at most once, no matter
// how many of its dependencies changed.
func (t *Task) MarkDirty() {
	if t.destroyed.Load() {
		return
	}
	if t.dirty.CompareAndSwap(false, true) {
		if c := t.container(); c != nil {
			c.notifyDirty(t)
		}
	}
}

// clearDirty transitions dirty→running. Returns false when the task was
// not dirty, which makes a scheduled run a no-op.
func (t *Task) clearDirty() bool {
	return t.dirty.CompareAndSwap(true, false)
}

// setDestroy replaces the aggregated destroy callback.
func (t *Task) setDestroy(fn Cleanup) {
	t.destroyMu.Lock()
	t.destroy = fn
	t.destroyMu.Unlock()
}

// takeDestroy removes and returns the destroy callback. Clearing before
// invoking makes re-entrant destruction a no-op.
func (t *Task) takeDestroy() Cleanup {
	t.destroyMu.Lock()
	defer t.destroyMu.Unlock()
	d := t.destroy
	t.destroy = nil
	return d
}

// CleanupPending reports whether a destroy callback is registered.
func (t *Task) CleanupPending() bool {
	t.destroyMu.Lock()
	defer t.destroyMu.Unlock()
	return t.destroy != nil
}

// addManager records a manager this task subscribed to, so the
// subscription can be dropped wholesale later.
func (t *Task) addManager(m *SubscriptionManager) {
	t.managersMu.Lock()
	defer t.managersMu.Unlock()
	for _, existing := range t.managers {
		if existing == m {
			return
		}
	}
	t.managers = append(t.managers, m)
}

// clearSubscriptions invalidates all of the task's prior subscriptions
// across every container it had subscribed to. Runs before each re-run so
// the dependency set after a run reflects only that run's reads.
func (t *Task) clearSubscriptions() {
	t.managersMu.Lock()
	managers := t.managers
	t.managers = nil
	t.managersMu.Unlock()

	for _, m := range managers {
		m.ClearSubscriber(t)
	}
}

// container returns the container through the host element.
func (t *Task) container() *Container {
	if t.el == nil {
		return nil
	}
	return t.el.Container()
}
