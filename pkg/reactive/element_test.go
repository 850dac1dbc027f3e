package reactive

import "testing"

func TestElementAssignsDeclarationOrderIndexes(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")

	noop := TaskFunc(func(ctx *TaskCtx) (Cleanup, error) { return nil, nil })
	t0 := el.NewTask(NewBodyRef("first", noop))
	t1 := el.NewTask(NewBodyRef("second", noop))
	t2, _ := el.NewComputed(NewBodyRef("third", ComputedFunc(func() (any, error) { return 1, nil })))

	if t0.Index() != 0 || t1.Index() != 1 || t2.Index() != 2 {
		t.Errorf("indexes = %d, %d, %d", t0.Index(), t1.Index(), t2.Index())
	}

	tasks := el.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.Index() != i {
			t.Errorf("task %d has index %d", i, task.Index())
		}
	}
}

func TestElementRemoveDestroysInReverseOrder(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	var order []string
	body := func(name string) *BodyRef {
		return NewBodyRef(name, TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
			ctx.Cleanup(func() { order = append(order, name) })
			return nil, nil
		}))
	}
	el.NewTask(body("a"))
	el.NewTask(body("b"))
	el.NewTask(body("c"))

	flush(t, c, sched)
	el.Remove()

	if !el.Removed() {
		t.Error("element should report removed")
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Errorf("expected reverse teardown c,b,a; got %v", order)
	}
}

func TestElementRemoveIsIdempotent(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	destroys := 0
	el.NewTask(NewBodyRef("once", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
		ctx.Cleanup(func() { destroys++ })
		return nil, nil
	})))

	flush(t, c, sched)
	el.Remove()
	el.Remove()

	if destroys != 1 {
		t.Errorf("expected exactly one destroy, got %d", destroys)
	}
}

func TestDestroyTaskRunsCallbackExactlyOnce(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	destroys := 0
	task := el.NewTask(NewBodyRef("once", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
		ctx.Cleanup(func() { destroys++ })
		return nil, nil
	})))

	flush(t, c, sched)

	c.DestroyTask(task)
	c.DestroyTask(task)
	c.CleanupTask(task)

	if destroys != 1 {
		t.Errorf("expected exactly one destroy, got %d", destroys)
	}
	if !task.Destroyed() {
		t.Error("task should report destroyed")
	}
}

func TestDestroyedTaskIgnoresDirtyMarks(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")
	sig := NewSignal(0)

	runs := 0
	task := el.NewTask(NewBodyRef("tracked", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
		if _, err := ctx.TrackValue(sig); err != nil {
			return nil, err
		}
		runs++
		return nil, nil
	})))

	flush(t, c, sched)
	c.DestroyTask(task)

	if err := sig.Set(1); err != nil {
		t.Fatal(err)
	}
	flush(t, c, sched)

	if runs != 1 {
		t.Errorf("destroyed task re-ran: %d runs", runs)
	}
	if sig.SubscriptionManager().Len() != 0 {
		t.Error("destroy left a dangling subscription")
	}
}

func TestCleanupTaskBodyRunsOnDestroyOnly(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	calls := 0
	task := el.NewCleanupTask(NewBodyRef("teardown", func() { calls++ }))

	// Never scheduled: a flush must not touch it.
	flush(t, c, sched)
	if calls != 0 {
		t.Fatalf("cleanup task body ran during flush: %d", calls)
	}

	c.DestroyTask(task)
	if calls != 1 {
		t.Errorf("expected body to run on destroy, got %d", calls)
	}

	c.DestroyTask(task)
	if calls != 1 {
		t.Errorf("destroy re-ran the body: %d", calls)
	}
}

func TestVisibleTaskNotScheduledUntilTrigger(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	runs := 0
	task := el.NewVisibleTask(NewBodyRef("lazy-mount", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
		runs++
		return nil, nil
	})))

	if !task.Dirty() {
		t.Fatal("visible task should be created dirty")
	}
	if sched.Pending() != 0 {
		t.Fatalf("visible task scheduled eagerly, pending=%d", sched.Pending())
	}

	flush(t, c, sched)
	if runs != 0 {
		t.Errorf("visible task ran without its trigger: %d", runs)
	}
}
