package reactive

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Container owns the collaborators of one reactive runtime instance: the
// scheduler the engine hands dirty tasks to, the error sink failures are
// routed to, the body loader, and the optional metrics and tracer. Host
// elements, and through them tasks, belong to exactly one container.
type Container struct {
	logger    *slog.Logger
	scheduler Scheduler
	sink      ErrorSink
	loader    BodyLoader
	metrics   *Metrics
	tracer    trace.Tracer

	// serverPass marks the initial server-side pass, during which resource
	// runs are expected to resolve without a loading flash.
	serverPass atomic.Bool

	elMu     sync.Mutex
	elements []*Element
}

// NewContainer creates a container. Without options it logs through
// slog.Default, schedules through an internal FlushScheduler, and carries
// no metrics or tracer.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = &slogSink{logger: c.logger}
	}
	if c.scheduler == nil {
		c.scheduler = NewFlushScheduler()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithScheduler sets the scheduler dirty tasks are handed to.
func WithScheduler(s Scheduler) Option {
	return func(c *Container) { c.scheduler = s }
}

// WithErrorSink sets the sink body and cleanup failures are routed to.
func WithErrorSink(sink ErrorSink) Option {
	return func(c *Container) { c.sink = sink }
}

// WithBodyLoader sets the loader used to resolve lazy task bodies.
func WithBodyLoader(loader BodyLoader) Option {
	return func(c *Container) { c.loader = loader }
}

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer; each task run becomes a span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Container) { c.tracer = t }
}

// WithServerPass marks the container as running its initial server-side
// pass. Call FinishServerPass once the first pass completed.
func WithServerPass() Option {
	return func(c *Container) { c.serverPass.Store(true) }
}

// FinishServerPass ends the initial server-side pass; subsequent resource
// runs set their loading flag normally.
func (c *Container) FinishServerPass() {
	c.serverPass.Store(false)
}

// ServerPass reports whether the initial server-side pass is active.
func (c *Container) ServerPass() bool {
	return c.serverPass.Load()
}

// Scheduler returns the container's scheduler.
func (c *Container) Scheduler() Scheduler {
	return c.scheduler
}

// Logger returns the container's structured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// PrefetchBody resolves a lazy body ahead of its task's run, so the first
// run does not pay the load.
func (c *Container) PrefetchBody(b *BodyRef) error {
	_, err := b.resolve(c)
	return err
}

// notifyDirty hands a freshly dirtied task to the scheduler.
func (c *Container) notifyDirty(t *Task) {
	c.metrics.dirtyMarked(t.kind)
	c.scheduler.NotifyTaskDirty(t)
}

// handleError routes a body failure to the error sink, once per failed run.
func (c *Container) handleError(err error, host *Element) {
	c.sink.HandleError(err, host)
}

// logError routes a cleanup failure to the sink's log-only path.
func (c *Container) logError(err error) {
	c.sink.LogError(err)
}

// addElement registers a host element with the container.
func (c *Container) addElement(el *Element) {
	c.elMu.Lock()
	defer c.elMu.Unlock()
	c.elements = append(c.elements, el)
}

// removeElement drops a removed host element.
func (c *Container) removeElement(el *Element) {
	c.elMu.Lock()
	defer c.elMu.Unlock()
	for i, e := range c.elements {
		if e == el {
			c.elements = append(c.elements[:i], c.elements[i+1:]...)
			return
		}
	}
}

// Elements returns a snapshot of the container's live host elements.
func (c *Container) Elements() []*Element {
	c.elMu.Lock()
	defer c.elMu.Unlock()
	out := make([]*Element, len(c.elements))
	copy(out, c.elements)
	return out
}
