package reactive

import (
	"sync"

	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for one goroutine. Reads
// performed through an instrumented accessor attribute themselves to
// currentSubscriber; batch state lives here as well so a batch opened on one
// goroutine never leaks into another.
type trackingContext struct {
	// currentSubscriber is what's currently collecting dependencies.
	// nil means no tracking (reads don't create subscriptions).
	currentSubscriber Subscriber

	// batchDepth tracks nested Batch() calls. When > 0, notifications are
	// queued instead of firing immediately.
	batchDepth int

	// pendingDirty accumulates subscribers to notify when the outermost
	// batch completes. Deduplicated by ID before notification.
	pendingDirty []Subscriber
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getTrackingContext returns the tracking context for the current goroutine,
// creating one if needed.
func getTrackingContext() *trackingContext {
	gid := goid.Get()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// currentSubscriber returns the subscriber currently collecting
// dependencies on this goroutine, or nil when no tracking is active.
func currentSubscriber() Subscriber {
	return getTrackingContext().currentSubscriber
}

// setCurrentSubscriber installs sub as the current subscriber and returns
// the previous one so it can be restored.
func setCurrentSubscriber(sub Subscriber) Subscriber {
	ctx := getTrackingContext()
	old := ctx.currentSubscriber
	ctx.currentSubscriber = sub
	return old
}

// WithSubscriber runs fn with sub installed as the current subscriber, so
// that instrumented reads performed transitively during fn attribute to sub.
// The previous subscriber is restored afterwards, making nesting and
// re-entrancy safe.
func WithSubscriber(sub Subscriber, fn func()) {
	old := setCurrentSubscriber(sub)
	defer setCurrentSubscriber(old)
	fn()
}

// Untracked runs fn without any current subscriber, so reads performed
// inside do not create subscriptions. The engine commits computed results
// inside an untracked block to avoid recording a self-dependency.
func Untracked(fn func()) {
	old := setCurrentSubscriber(nil)
	defer setCurrentSubscriber(old)
	fn()
}

// trackRead registers the current subscriber, if any, against m. When the
// subscriber is a task, the manager is also recorded on the task so the
// subscription can be invalidated wholesale before the task's next run.
func trackRead(m *SubscriptionManager, key string) {
	sub := currentSubscriber()
	if sub == nil {
		return
	}
	m.Add(sub, key)
	if t, ok := sub.(*Task); ok {
		t.addManager(m)
	}
}

// inBatch reports whether a batch is open on this goroutine.
func inBatch() bool {
	return getTrackingContext().batchDepth > 0
}

// queuePendingDirty defers a dirty notification until the outermost batch
// on this goroutine completes.
func queuePendingDirty(sub Subscriber) {
	ctx := getTrackingContext()
	ctx.pendingDirty = append(ctx.pendingDirty, sub)
}

// cleanupGoroutineContext removes the tracking context for the current
// goroutine. Optional; contexts are small and reused, but long-lived worker
// pools may call this before parking a goroutine.
func cleanupGoroutineContext() {
	trackingContexts.Delete(goid.Get())
}
