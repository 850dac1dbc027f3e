package reactive

// DestroyTask tears a task down, from any state, exactly once. A task that
// IS a deferred cleanup callback has its body invoked directly and the flag
// cleared; any other task delegates to CleanupTask. Afterwards the task is
// detached from every subscription manager holding it.
func (c *Container) DestroyTask(t *Task) {
	if t.destroyed.Swap(true) {
		return
	}

	if t.isCleanup.Swap(false) {
		if fn, err := t.body.resolve(c); err != nil {
			c.logError(err)
		} else if body, ok := fn.(func()); ok {
			runCleanupFn(c, body)
		}
	} else {
		c.CleanupTask(t)
	}

	t.clearSubscriptions()
}

// CleanupTask runs the task's pending destroy callback, if any. The
// callback is cleared before it is invoked, so re-entrant destruction is a
// no-op, and any panic is caught and logged without propagating. Cleanup
// failure never prevents the next run from proceeding.
func (c *Container) CleanupTask(t *Task) {
	d := t.takeDestroy()
	if d == nil {
		return
	}
	runCleanupFn(c, d)
}

// runCleanupFn invokes one cleanup callback, converting a panic into a
// logged error.
func runCleanupFn(c *Container, fn Cleanup) {
	defer func() {
		if r := recover(); r != nil {
			c.logError(recoveredError(r))
		}
	}()
	fn()
}
