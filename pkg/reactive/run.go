package reactive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TaskCtx is the invocation context handed to plain and visible task
// bodies. It exposes the tracker, the sole sanctioned way to read reactive
// state with dependency capture, and a cleanup registrar.
type TaskCtx struct {
	task *Task
	c    *Container

	mu       sync.Mutex
	cleanups []Cleanup
	halted   bool
}

func newTaskCtx(t *Task, c *Container) *TaskCtx {
	return &TaskCtx{task: t, c: c}
}

// Track invokes fn with this task installed as the current subscriber, so
// any instrumented reads performed transitively during the call attribute
// to the task. Returns whatever fn returns.
func (tc *TaskCtx) Track(fn func() any) any {
	if tc.trackingHalted() {
		return nil
	}
	var out any
	WithSubscriber(tc.task, func() {
		out = fn()
	})
	return out
}

// TrackValue registers this task's subscription against the container's
// subscription manager immediately, without invoking anything, and returns
// the current value: a signal's value, or the object itself for other
// containers. Tracking a value that has no subscription manager is a
// programming error; it fails loudly and halts further tracking in this
// run.
func (tc *TaskCtx) TrackValue(v any) (any, error) {
	m, err := tc.managerFor(v)
	if err != nil {
		return nil, err
	}
	m.Add(tc.task, "")
	tc.task.addManager(m)

	if sig, ok := v.(*Signal); ok {
		return sig.Peek(), nil
	}
	return v, nil
}

// TrackKey registers this task's subscription against one property of the
// container and returns the property's current value.
func (tc *TaskCtx) TrackKey(v any, key string) (any, error) {
	m, err := tc.managerFor(v)
	if err != nil {
		return nil, err
	}
	m.Add(tc.task, key)
	tc.task.addManager(m)

	if st, ok := v.(*Store); ok {
		return st.Peek(key), nil
	}
	if sig, ok := v.(*Signal); ok {
		return sig.Peek(), nil
	}
	return v, nil
}

// Cleanup registers a callback to run before the task's next run and on
// teardown.
func (tc *TaskCtx) Cleanup(fn Cleanup) {
	if fn == nil {
		return
	}
	tc.mu.Lock()
	tc.cleanups = append(tc.cleanups, fn)
	tc.mu.Unlock()
}

// trackingHalted reports (without reporting an error twice) whether a
// tracking misuse already poisoned this run.
func (tc *TaskCtx) trackingHalted() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.halted
}

// managerFor resolves the subscription manager for v, enforcing the
// fail-loudly policy for untrackable values.
func (tc *TaskCtx) managerFor(v any) (*SubscriptionManager, error) {
	tc.mu.Lock()
	if tc.halted {
		tc.mu.Unlock()
		return nil, ErrTrackingHalted
	}
	tc.mu.Unlock()

	m := managerOf(v)
	if m == nil {
		tc.mu.Lock()
		tc.halted = true
		tc.mu.Unlock()
		err := fmt.Errorf("%w: %T", ErrNotTrackable, v)
		tc.c.handleError(err, tc.task.el)
		return nil, err
	}
	return m, nil
}

// aggregate folds the registered cleanups into the task's single destroy
// callback. Each callback runs even if an earlier one panics; panics are
// logged, never propagated. Returns nil when nothing was registered.
func (tc *TaskCtx) aggregate() Cleanup {
	tc.mu.Lock()
	fns := tc.cleanups
	tc.mu.Unlock()

	if len(fns) == 0 {
		return nil
	}
	c := tc.c
	return func() {
		for _, fn := range fns {
			runCleanupFn(c, fn)
		}
	}
}

// drainAndRun takes the cleanups registered so far and runs them now, used
// by the resource timeout path. Later destruction runs nothing twice.
func (tc *TaskCtx) drainAndRun() {
	tc.mu.Lock()
	fns := tc.cleanups
	tc.cleanups = nil
	tc.mu.Unlock()

	for _, fn := range fns {
		runCleanupFn(tc.c, fn)
	}
}

// liveDestroy returns a destroy callback that drains whatever is registered
// at invocation time. Resource tasks install this before their body runs,
// since async bodies may register cleanups after the run entry returned.
func (tc *TaskCtx) liveDestroy() Cleanup {
	return func() {
		tc.drainAndRun()
	}
}

// ResourceCtx is the richer invocation context for resource bodies.
type ResourceCtx struct {
	*TaskCtx
	res *ResourceState
}

// Cache stores the caching policy for the resolved value. Pass
// CacheImmutable for an unbounded lifetime.
func (rc *ResourceCtx) Cache(d time.Duration) {
	rc.res.setCache(d)
}

// Previous returns the value resolved by the previous run, for incremental
// resource bodies.
func (rc *ResourceCtx) Previous() any {
	return rc.res.Previous()
}

// RunSubscriber executes a dirty task. The dirty flag is the precondition:
// invocation clears it first, then runs any previous cleanup (logged, never
// propagated), invalidates the task's prior subscriptions wholesale, and
// dispatches on the task kind. Errors thrown by the body are routed to the
// error sink exactly once per failed run and never re-thrown past the task
// boundary.
func (c *Container) RunSubscriber(ctx context.Context, t *Task) {
	if t.Destroyed() {
		return
	}
	if !t.clearDirty() {
		return
	}

	ctx, span := c.startTaskSpan(ctx, t)
	start := time.Now()

	c.CleanupTask(t)
	t.clearSubscriptions()

	var err error
	switch t.kind {
	case TaskPlain, TaskVisible:
		err = c.runTask(ctx, t)
	case TaskComputed:
		err = c.runComputed(ctx, t)
	case TaskResource:
		err = c.runResource(ctx, t)
	}

	c.metrics.observeRun(t.kind, time.Since(start), err)
	c.endTaskSpan(span, err)

	if err != nil {
		c.handleError(err, t.el)
	}
}

// runTask runs a plain or visible task body. Tracking is opt-in per read
// through the TaskCtx; a returned cleanup joins the task's cleanup list.
func (c *Container) runTask(ctx context.Context, t *Task) error {
	fn, err := t.body.resolve(c)
	if err != nil {
		return err
	}
	body, ok := fn.(TaskFunc)
	if !ok {
		return fmt.Errorf("%w: %q is not a task body", ErrBodyNotResolved, t.body.Symbol())
	}

	tctx := newTaskCtx(t, c)

	var cleanup Cleanup
	var bodyErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				bodyErr = recoveredError(r)
			}
		}()
		cleanup, bodyErr = body(tctx)
	}()

	if cleanup != nil {
		tctx.Cleanup(cleanup)
	}
	t.setDestroy(tctx.aggregate())
	return bodyErr
}

// runComputed runs a computed task body. The task is the sole subscriber
// for the whole execution, and the result is committed to the task's signal
// outside of any tracking context so the write never records a
// self-dependency. On failure the signal keeps its previous value.
func (c *Container) runComputed(ctx context.Context, t *Task) error {
	fn, err := t.body.resolve(c)
	if err != nil {
		return err
	}
	body, ok := fn.(ComputedFunc)
	if !ok {
		return fmt.Errorf("%w: %q is not a computed body", ErrBodyNotResolved, t.body.Symbol())
	}
	sig := t.Signal()
	if sig == nil {
		return fmt.Errorf("loom: computed task %d has no signal", t.index)
	}

	var value any
	var bodyErr error
	WithSubscriber(t, func() {
		defer func() {
			if r := recover(); r != nil {
				bodyErr = recoveredError(r)
			}
		}()
		value, bodyErr = body()
	})
	if bodyErr != nil {
		return bodyErr
	}

	Untracked(func() {
		sig.setFromOwner(value)
	})
	return nil
}

// runResource runs a resource task body. The state is reset to pending
// under a fresh generation, the body runs after the optional waitOn gate,
// and settlement races an optional timeout. Settlement is idempotent per
// generation: a late body resolution after a timeout, or after a newer run
// began, has no observable effect.
//
// The returned error is the settled rejection, if any; RunSubscriber routes
// it to the sink once.
func (c *Container) runResource(ctx context.Context, t *Task) error {
	res := t.Resource()
	if res == nil {
		return fmt.Errorf("loom: resource task %d has no state", t.index)
	}
	fn, err := t.body.resolve(c)
	if err != nil {
		return err
	}
	body, ok := fn.(ResourceFunc)
	if !ok {
		return fmt.Errorf("%w: %q is not a resource body", ErrBodyNotResolved, t.body.Symbol())
	}

	gen, done := res.beginRun(c.ServerPass())

	tctx := newTaskCtx(t, c)
	rctx := &ResourceCtx{TaskCtx: tctx, res: res}

	// Async bodies may register cleanups after this function returns, so
	// the destroy callback drains at invocation time.
	t.setDestroy(tctx.liveDestroy())

	if t.waitOn != nil {
		select {
		case <-t.waitOn:
		case <-ctx.Done():
			res.settle(gen, nil, ctx.Err())
			return ctx.Err()
		}
	}

	go func() {
		var value any
		var bodyErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					bodyErr = recoveredError(r)
				}
			}()
			value, bodyErr = body(rctx)
		}()
		if !res.settle(gen, value, bodyErr) {
			c.metrics.staleSettlement()
		}
	}()

	var timeoutCh <-chan time.Time
	if d := res.Timeout(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-done:
	case <-timeoutCh:
		if res.settle(gen, nil, ErrResourceTimeout) {
			c.metrics.resourceTimeout()
			tctx.drainAndRun()
		}
	case <-ctx.Done():
		res.settle(gen, nil, ctx.Err())
	}

	if res.Phase() == ResourceRejected {
		return res.Err()
	}
	return nil
}
