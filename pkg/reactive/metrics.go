package reactive

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the engine's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "loom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "reactive").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for task run duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the engine metrics.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithMetricsSubsystem sets the metrics subsystem.
func WithMetricsSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithMetricsConstLabels sets constant labels for all metrics.
func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithMetricsBuckets sets the run duration histogram buckets.
func WithMetricsBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "loom",
		Subsystem: "reactive",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics exposes the engine's Prometheus instruments. A nil *Metrics is
// valid and records nothing, so containers without metrics pay no cost.
type Metrics struct {
	taskRuns         *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	dirtyMarks       *prometheus.CounterVec
	resourceTimeouts prometheus.Counter
	staleSettlements prometheus.Counter
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		taskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "task_runs_total",
			Help:        "Task runs by kind and result.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "result"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "task_run_duration_seconds",
			Help:        "Task run duration by kind.",
			Buckets:     cfg.Buckets,
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		dirtyMarks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "task_dirty_marks_total",
			Help:        "Dirty notifications handed to the scheduler, by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		resourceTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "resource_timeouts_total",
			Help:        "Resources force-rejected by their timeout.",
			ConstLabels: cfg.ConstLabels,
		}),
		staleSettlements: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "resource_stale_settlements_total",
			Help:        "Resource settlements dropped because the run already settled or a newer run began.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

func (m *Metrics) dirtyMarked(kind TaskKind) {
	if m == nil {
		return
	}
	m.dirtyMarks.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeRun(kind TaskKind, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.taskRuns.WithLabelValues(kind.String(), result).Inc()
	m.runDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

func (m *Metrics) resourceTimeout() {
	if m == nil {
		return
	}
	m.resourceTimeouts.Inc()
}

func (m *Metrics) staleSettlement() {
	if m == nil {
		return
	}
	m.staleSettlements.Inc()
}
