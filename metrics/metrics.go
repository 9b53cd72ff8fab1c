package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the engine's prometheus instruments on a private
// registry so independent instances never collide.
type Collector struct {
	registry *prometheus.Registry

	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	scheduledTotal     prometheus.Counter
	sweepFailuresTotal prometheus.Counter
	deliveredTotal     prometheus.Counter
	statementsTotal    *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assist_operations_total",
			Help: "Executed assistance operations by type, operation and outcome.",
		}, []string{"type", "operation", "outcome"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assist_operation_duration_seconds",
			Help:    "Duration of assistance operation execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type", "operation"}),
		scheduledTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "assist_scheduled_operations_total",
			Help: "Deferred operation invocations enqueued.",
		}),
		sweepFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "assist_sweep_entry_failures_total",
			Help: "Scheduled entries whose invocation failed during a sweep.",
		}),
		deliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "assist_delivered_objects_total",
			Help: "Assistance objects handed to delivery sinks.",
		}),
		statementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assist_statements_total",
			Help: "Learner activity statements received by verb.",
		}, []string{"verb"}),
	}
}

// Registry exposes the underlying registry for the HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) OperationExecuted(typeKey, operationKey, outcome string) {
	c.operationsTotal.WithLabelValues(typeKey, operationKey, outcome).Inc()
}

func (c *Collector) ObserveOperationDuration(typeKey, operationKey string, seconds float64) {
	c.operationDuration.WithLabelValues(typeKey, operationKey).Observe(seconds)
}

func (c *Collector) OperationScheduled() {
	c.scheduledTotal.Inc()
}

func (c *Collector) SweepEntryFailed() {
	c.sweepFailuresTotal.Inc()
}

func (c *Collector) ObjectsDelivered(count int) {
	c.deliveredTotal.Add(float64(count))
}

func (c *Collector) StatementReceived(verb string) {
	c.statementsTotal.WithLabelValues(verb).Inc()
}
