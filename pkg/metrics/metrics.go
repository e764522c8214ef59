// Package metrics exposes Prometheus counters and histograms for the
// runtime, task monitor and attribute server subsystems.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pza_instances_total",
			Help: "Total number of driver instances by state",
		},
		[]string{"state"},
	)

	ProductionOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_production_orders_total",
			Help: "Total number of production orders accepted by the runtime, by outcome",
		},
		[]string{"outcome"},
	)

	TaskEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_task_events_total",
			Help: "Total number of task monitor events by kind",
		},
		[]string{"kind"},
	)

	AttributeCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_attribute_commands_total",
			Help: "Total number of inbound commands received on an attribute, by topic",
		},
		[]string{"topic"},
	)

	AttributePublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_attribute_publishes_total",
			Help: "Total number of outbound att publishes, by topic",
		},
		[]string{"topic"},
	)

	AttributePublishErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_attribute_publish_errors_total",
			Help: "Total number of failed att publishes, by topic",
		},
		[]string{"topic"},
	)

	AlertsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pza_alerts_raised_total",
			Help: "Total number of alerts raised, by topic and level",
		},
		[]string{"topic", "level"},
	)

	FSMTransitionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pza_fsm_transition_duration_seconds",
			Help:    "Time spent inside a single Instance FSM state before transition",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(InstancesTotal)
	prometheus.MustRegister(ProductionOrdersTotal)
	prometheus.MustRegister(TaskEventsTotal)
	prometheus.MustRegister(AttributeCommandsTotal)
	prometheus.MustRegister(AttributePublishesTotal)
	prometheus.MustRegister(AttributePublishErrorsTotal)
	prometheus.MustRegister(AlertsRaisedTotal)
	prometheus.MustRegister(FSMTransitionDuration)
}

// Handler returns the Prometheus HTTP handler, for embedders that want to
// expose /metrics from their own process.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
