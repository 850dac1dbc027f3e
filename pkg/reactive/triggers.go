package reactive

import (
	"context"
	"sync"
)

// Trigger identifies a host signal that makes a visible task eligible to
// run. Detection itself (intersection observers, load/idle events) is the
// host's business; the engine only consumes the firing.
type Trigger uint8

const (
	// TriggerVisible fires when the host element scrolls into view.
	TriggerVisible Trigger = iota
	// TriggerDocumentReady fires when the document finished loading.
	TriggerDocumentReady
	// TriggerDocumentIdle fires when the host reaches an idle period.
	TriggerDocumentIdle
)

// String returns a human-readable trigger name.
func (tr Trigger) String() string {
	switch tr {
	case TriggerVisible:
		return "visible"
	case TriggerDocumentReady:
		return "document-ready"
	case TriggerDocumentIdle:
		return "document-idle"
	default:
		return "unknown"
	}
}

// TriggerRegistry holds one-shot handlers per trigger. Fire invokes each
// registered handler exactly once and forgets it; handlers registered after
// a firing wait for the next one.
type TriggerRegistry struct {
	mu       sync.Mutex
	handlers map[Trigger][]func()
}

// NewTriggerRegistry creates an empty registry.
func NewTriggerRegistry() *TriggerRegistry {
	return &TriggerRegistry{
		handlers: make(map[Trigger][]func()),
	}
}

// Register adds a one-shot handler for tr.
func (r *TriggerRegistry) Register(tr Trigger, fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.handlers[tr] = append(r.handlers[tr], fn)
	r.mu.Unlock()
}

// Fire invokes and clears every handler registered for tr.
func (r *TriggerRegistry) Fire(tr Trigger) {
	r.mu.Lock()
	fns := r.handlers[tr]
	delete(r.handlers, tr)
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ScheduleOnTrigger registers a one-shot handler that, when the trigger
// fires, hands the task to the scheduler. This is how a visible task,
// created dirty but unscheduled, becomes eligible to run.
func (c *Container) ScheduleOnTrigger(reg *TriggerRegistry, tr Trigger, t *Task) {
	reg.Register(tr, func() {
		if t.Destroyed() {
			return
		}
		if t.Dirty() {
			c.notifyDirty(t)
			return
		}
		t.MarkDirty()
	})
}

// RunEntry is the engine's run entry point for trigger wiring: it runs the
// task immediately instead of going through the scheduler.
func (c *Container) RunEntry(ctx context.Context, t *Task) {
	c.RunSubscriber(ctx, t)
}
