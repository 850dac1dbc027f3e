package reactive

import (
	"context"
	"sync"
)

// Scheduler is the host's re-render/flush binding. NotifyTaskDirty may be
// called any number of times for the same task; implementations must
// coalesce to a single pending run.
type Scheduler interface {
	NotifyTaskDirty(t *Task)
}

// FlushScheduler is the default scheduler: it queues dirty tasks and runs
// them when the host calls Flush. Notifications arriving while a flush is
// in progress land in the next pass, so a notified task's synchronous
// continuation never mutates the set being iterated.
type FlushScheduler struct {
	mu     sync.Mutex
	queue  []*Task
	queued map[uint64]struct{}
}

// NewFlushScheduler creates an empty scheduler.
func NewFlushScheduler() *FlushScheduler {
	return &FlushScheduler{
		queued: make(map[uint64]struct{}),
	}
}

// NotifyTaskDirty queues the task for the next flush. Idempotent per
// pending run.
func (s *FlushScheduler) NotifyTaskDirty(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queued[t.ID()]; ok {
		return
	}
	s.queued[t.ID()] = struct{}{}
	s.queue = append(s.queue, t)
}

// Pending reports the number of tasks awaiting a flush.
func (s *FlushScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush runs every queued task through the container's engine and returns
// how many actually ran. Tasks that lost their dirty flag in the meantime
// (destroyed, or already run directly) are skipped.
func (s *FlushScheduler) Flush(ctx context.Context, c *Container) int {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.queued = make(map[uint64]struct{})
	s.mu.Unlock()

	ran := 0
	for _, t := range batch {
		if t.Destroyed() || !t.Dirty() {
			continue
		}
		c.RunSubscriber(ctx, t)
		ran++
	}
	return ran
}
