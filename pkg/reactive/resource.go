package reactive

import (
	"context"
	"math"
	"sync"
	"time"
)

// ResourcePhase is the tri-state of a resource value.
type ResourcePhase uint8

const (
	// ResourcePending means a run is in flight and the value is not settled.
	ResourcePending ResourcePhase = iota
	// ResourceResolved means the last run settled with a value.
	ResourceResolved
	// ResourceRejected means the last run settled with an error.
	ResourceRejected
)

// String returns a human-readable phase name.
func (p ResourcePhase) String() string {
	switch p {
	case ResourcePending:
		return "pending"
	case ResourceResolved:
		return "resolved"
	case ResourceRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// CacheImmutable is the cache-policy sentinel meaning the resolved value
// never goes stale.
const CacheImmutable = time.Duration(math.MaxInt64)

// ResourceState is the payload of a resource task: a tri-state value with a
// settlement future, a loading flag, the previously resolved value, and the
// cache/timeout durations configured by the body.
//
// At most one settlement is accepted per run. Each run bumps a generation
// counter; a settle call carrying a stale generation, or arriving after the
// run already settled, is a no-op. This is what lets a timeout race and a
// late body resolution coexist without both mutating state.
type ResourceState struct {
	mu         sync.Mutex
	phase      ResourcePhase
	loading    bool
	value      any
	previous   any
	err        error
	settled    bool
	generation uint64
	done       chan struct{}

	cacheFor time.Duration
	timeout  time.Duration
}

// newResourceState returns a state awaiting its first run.
func newResourceState(timeout time.Duration) *ResourceState {
	return &ResourceState{
		done:    make(chan struct{}),
		timeout: timeout,
	}
}

// NewResourceState creates resource task state without the task itself.
// Resume layers use it to rebuild a decoded task's state.
func NewResourceState(timeout time.Duration) *ResourceState {
	return newResourceState(timeout)
}

// beginRun resets the state to pending for a new run and returns the run's
// generation along with its settlement channel. The last resolved value is
// kept as "previous". During the initial server-side pass loading stays
// false so the first render does not flash a loading state.
func (r *ResourceState) beginRun(serverPass bool) (uint64, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == ResourceResolved {
		r.previous = r.value
	}
	r.phase = ResourcePending
	r.loading = !serverPass
	r.err = nil
	r.settled = false
	r.generation++
	r.done = make(chan struct{})
	return r.generation, r.done
}

// settle commits the outcome of run generation gen. It reports false when
// the run already settled or when gen is stale, in which case nothing is
// observable: a late resolution after a timeout, or after a newer run
// started, has no effect.
func (r *ResourceState) settle(gen uint64, value any, err error) bool {
	r.mu.Lock()
	if r.settled || gen != r.generation {
		r.mu.Unlock()
		return false
	}
	r.settled = true
	r.loading = false
	if err != nil {
		r.phase = ResourceRejected
		r.err = err
	} else {
		r.phase = ResourceResolved
		r.value = value
	}
	done := r.done
	r.mu.Unlock()

	close(done)
	return true
}

// Await blocks until the current run settles or ctx is done, then returns
// the settled value or error.
func (r *ResourceState) Await(ctx context.Context) (any, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == ResourceRejected {
		return nil, r.err
	}
	return r.value, nil
}

// Phase returns the current tri-state.
func (r *ResourceState) Phase() ResourcePhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Loading reports whether a run is in flight outside the server pass.
func (r *ResourceState) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Value returns the last resolved value.
func (r *ResourceState) Value() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Previous returns the value resolved by the run before the current one.
func (r *ResourceState) Previous() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previous
}

// Err returns the last rejection error.
func (r *ResourceState) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// CacheFor returns the cache duration the body last configured.
// CacheImmutable means unbounded.
func (r *ResourceState) CacheFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cacheFor
}

// Timeout returns the configured timeout, zero meaning none.
func (r *ResourceState) Timeout() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeout
}

// setCache stores the cache policy configured by the body.
func (r *ResourceState) setCache(d time.Duration) {
	r.mu.Lock()
	r.cacheFor = d
	r.mu.Unlock()
}
