package actor

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "pokeledger"
	metricsSubsystem = "actor"
)

// Metrics tracks actor performance metrics
type Metrics struct {
	Name             string
	MessagesSent     atomic.Int64
	MessagesReceived atomic.Int64
	DroppedMessages  atomic.Int64
	InvalidMessages  atomic.Int64
	Restarts         atomic.Int32
	Panics           atomic.Int64
	Timeouts         atomic.Int64

	processed prometheus.Counter
	drops     prometheus.Counter
	duration  prometheus.Observer
	failures  *prometheus.CounterVec
}

// NewMetrics creates metrics for an actor that are not exported to any registry
func NewMetrics(name string) *Metrics {
	return newCollectors(nil).forActor(name)
}

// ObserveFailure counts a failed entrypoint call by error kind
func (m *Metrics) ObserveFailure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

// Failures returns the failure counter for kind
func (m *Metrics) Failures(kind string) prometheus.Counter {
	return m.failures.WithLabelValues(kind)
}

func (m *Metrics) observe(d time.Duration) {
	m.processed.Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) dropped() {
	m.DroppedMessages.Add(1)
	m.drops.Inc()
}

// collectors are shared by every actor of a system and labelled by actor address
type collectors struct {
	processed *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	failures  *prometheus.CounterVec
}

func newCollectors(reg prometheus.Registerer) *collectors {
	c := &collectors{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_processed_total",
			Help:      "Number of envelopes processed by an actor.",
		}, []string{"actor"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_dropped_total",
			Help:      "Number of envelopes rejected because the mailbox was full.",
		}, []string{"actor"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "processing_seconds",
			Help:      "Time spent processing a single envelope.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"actor"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "entrypoint_failures_total",
			Help:      "Number of entrypoint calls that were rejected, by error kind.",
		}, []string{"actor", "kind"}),
	}

	if reg != nil {
		c.processed = register(reg, c.processed)
		c.dropped = register(reg, c.dropped)
		c.duration = register(reg, c.duration)
		c.failures = register(reg, c.failures)
	}
	return c
}

// register returns the collector already registered under the same
// descriptor, so several systems can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(errors.Wrap(err, "register actor metrics"))
	}
	return c
}

func (c *collectors) forActor(name string) *Metrics {
	return &Metrics{
		Name:      name,
		processed: c.processed.WithLabelValues(name),
		drops:     c.dropped.WithLabelValues(name),
		duration:  c.duration.WithLabelValues(name),
		failures:  c.failures.MustCurryWith(prometheus.Labels{"actor": name}),
	}
}
