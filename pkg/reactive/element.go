package reactive

import (
	"sync"
	"sync/atomic"
	"time"
)

// Element is the host a task is declared on. It assigns declaration-order
// indexes (the stable identity used for serialization and resume matching)
// and tears its tasks down when it is removed.
type Element struct {
	id        uint64
	name      string
	container *Container

	mu        sync.Mutex
	tasks     []*Task
	nextIndex int

	removed atomic.Bool
}

// NewElement creates a host element owned by the container.
func (c *Container) NewElement(name string) *Element {
	el := &Element{
		id:        nextID(),
		name:      name,
		container: c,
	}
	c.addElement(el)
	return el
}

// ID returns the unique identifier for this element.
func (e *Element) ID() uint64 { return e.id }

// Name returns the element's diagnostic name.
func (e *Element) Name() string { return e.name }

// Container returns the owning container.
func (e *Element) Container() *Container { return e.container }

// Removed reports whether the element has been torn down.
func (e *Element) Removed() bool { return e.removed.Load() }

// Tasks returns a snapshot of the element's tasks in declaration order.
func (e *Element) Tasks() []*Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// attach registers a task and assigns its declaration-order index.
// Tasks start dirty: a task that has never run cannot be trusted.
func (e *Element) attach(kind TaskKind, body *BodyRef, state any) *Task {
	e.mu.Lock()
	index := e.nextIndex
	e.nextIndex++
	t := newTask(kind, index, e, body, state)
	e.tasks = append(e.tasks, t)
	e.mu.Unlock()

	t.dirty.Store(true)
	e.container.notifyDirty(t)
	return t
}

// AttachDecoded re-registers a task reconstructed from its serialized form.
// The index is taken from the wire, not assigned, and the body is not
// executed; a decoded-dirty task is handed to the scheduler.
func (e *Element) AttachDecoded(t *Task) {
	e.mu.Lock()
	e.tasks = append(e.tasks, t)
	if t.index >= e.nextIndex {
		e.nextIndex = t.index + 1
	}
	e.mu.Unlock()

	if t.dirty.Load() {
		e.container.notifyDirty(t)
	}
}

// NewTask declares a plain side-effecting task on this element.
func (e *Element) NewTask(body *BodyRef) *Task {
	return e.attach(TaskPlain, body, nil)
}

// NewVisibleTask declares a task that runs once its host trigger fires.
// Until then the task sits dirty without being scheduled; wire it to a
// TriggerRegistry with ScheduleOnTrigger.
func (e *Element) NewVisibleTask(body *BodyRef) *Task {
	e.mu.Lock()
	index := e.nextIndex
	e.nextIndex++
	t := newTask(TaskVisible, index, e, body, nil)
	e.tasks = append(e.tasks, t)
	e.mu.Unlock()

	t.dirty.Store(true)
	return t
}

// NewCleanupTask declares a task that IS a deferred cleanup callback: its
// body (a plain func()) runs once, directly, when the task is destroyed.
// It is never scheduled.
func (e *Element) NewCleanupTask(body *BodyRef) *Task {
	e.mu.Lock()
	index := e.nextIndex
	e.nextIndex++
	t := newTask(TaskPlain, index, e, body, nil)
	t.isCleanup.Store(true)
	e.tasks = append(e.tasks, t)
	e.mu.Unlock()
	return t
}

// NewComputed declares a computed task. The returned signal is read-only
// from the outside; only this task's runs write it.
func (e *Element) NewComputed(body *BodyRef) (*Task, *Signal) {
	sig := newComputedSignal()
	t := e.attach(TaskComputed, body, sig)
	return t, sig
}

// NewResource declares an asynchronous resource task. timeout zero means no
// timeout.
func (e *Element) NewResource(body *BodyRef, timeout time.Duration) (*Task, *ResourceState) {
	res := newResourceState(timeout)
	t := e.attach(TaskResource, body, res)
	return t, res
}

// Remove tears the element down: tasks are destroyed in reverse declaration
// order, each destroy callback runs exactly once, and every task is
// detached from the subscription managers holding it.
func (e *Element) Remove() {
	if e.removed.Swap(true) {
		return
	}

	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()

	for i := len(tasks) - 1; i >= 0; i-- {
		e.container.DestroyTask(tasks[i])
	}

	e.container.removeElement(e)
}
