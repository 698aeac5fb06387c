// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

type Metrics struct {
	Scenarios          *prometheus.GaugeVec
	Transitions        *prometheus.CounterVec
	ProjectionApplied  *prometheus.CounterVec
	ProjectionFailures *prometheus.CounterVec
	ProjectionCenters  prometheus.Gauge
	OnlineViewers      prometheus.Gauge
	MessagesSent       prometheus.Counter
	BroadcastLatency   prometheus.Histogram
	PersistenceErrors  prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scenarios: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenarios",
			Help:      "Number of scenarios per center and status",
		}, []string{"center", "status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Status transitions that changed a scenario",
		}, []string{"from", "to"}),
		ProjectionApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_snapshots_total",
			Help:      "Room snapshots merged into the projection",
		}, []string{"center"}),
		ProjectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_delivery_failures_total",
			Help:      "Delivery errors reported by the realtime source",
		}, []string{"center"}),
		ProjectionCenters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "projection_centers",
			Help:      "Centers currently present in the projection",
		}),
		OnlineViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_viewers",
			Help:      "Number of connected dashboard viewers",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of packets pushed to viewers",
		}),
		BroadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_latency_seconds",
			Help:      "Time to push one projection to every viewer",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		PersistenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed write-through saves",
		}),
	}

	reg.MustRegister(
		m.Scenarios,
		m.Transitions,
		m.ProjectionApplied,
		m.ProjectionFailures,
		m.ProjectionCenters,
		m.OnlineViewers,
		m.MessagesSent,
		m.BroadcastLatency,
		m.PersistenceErrors,
	)

	return m
}

// Monitor owns a private registry so several instances can live in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the monitor started",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
	)
	return m
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer is used by tests to read metric values.
func (m *Monitor) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveSnapshot refreshes the per-status scenario gauges from a registry snapshot.
func (m *Monitor) ObserveSnapshot(snapshot room.Snapshot) {
	m.metrics.Scenarios.Reset()
	for _, center := range snapshot.Centers {
		counts := map[state.Status]int{
			state.StatusOpen:        0,
			state.StatusClosed:      0,
			state.StatusMaintenance: 0,
			state.StatusUnknown:     0,
		}
		for _, scenario := range center.Scenarios {
			counts[scenario.Status]++
		}
		for status, n := range counts {
			m.metrics.Scenarios.WithLabelValues(center.ID, status.String()).Set(float64(n))
		}
	}
}

// ObserveTransition matches state.ChangeHook.
func (m *Monitor) ObserveTransition(from, to state.Status, _ state.Action) {
	m.metrics.Transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// SnapshotApplied implements projection.Observer.
func (m *Monitor) SnapshotApplied(centerID string, rooms int) {
	m.metrics.ProjectionApplied.WithLabelValues(centerID).Inc()
}

// DeliveryFailed implements projection.Observer. An empty id is the center collection.
func (m *Monitor) DeliveryFailed(centerID string) {
	if centerID == "" {
		centerID = "_centers"
	}
	m.metrics.ProjectionFailures.WithLabelValues(centerID).Inc()
}

func (m *Monitor) SetProjectionCenters(count int) {
	m.metrics.ProjectionCenters.Set(float64(count))
}

func (m *Monitor) IncOnlineViewers() {
	m.metrics.OnlineViewers.Inc()
}

func (m *Monitor) DecOnlineViewers() {
	m.metrics.OnlineViewers.Dec()
}

func (m *Monitor) IncMessagesSent() {
	m.metrics.MessagesSent.Inc()
}

func (m *Monitor) ObserveBroadcastLatency(duration time.Duration) {
	m.metrics.BroadcastLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncPersistenceErrors() {
	m.metrics.PersistenceErrors.Inc()
}
