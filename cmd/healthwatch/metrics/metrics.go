// Package metrics provides Prometheus instrumentation for the healthwatch
// service.
//
// Metrics exposed:
//   - healthwatch_poll_cycle_duration_seconds: Histogram of poll cycle durations
//   - healthwatch_poll_readings_fetched: Gauge of readings fetched in the last cycle
//   - healthwatch_fetch_fallbacks_total: Counter of synthetic fallbacks by reason
//   - healthwatch_updates_emitted_total: Counter of health updates published
//   - healthwatch_persist_errors_total: Counter of swallowed persistence failures
//   - healthwatch_bus_publishes_total: Counter of bus publishes by topic
//   - healthwatch_bus_handler_panics_total: Counter of recovered handler panics by topic
//   - healthwatch_stream_sessions_active: Gauge of live sessions by transport
//   - healthwatch_stream_events_dropped_total: Counter of events dropped for slow sessions
//   - healthwatch_stock_mutations_total: Counter of stock movements by event
//   - healthwatch_reorders_created_total: Counter of reorder requests created
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HatiCode/healthwatch/pkg/poller"
)

// Metrics implements the observer hooks of the poller, event bus, stream
// manager and inventory service.
type Metrics struct {
	PollCycleDuration prometheus.Histogram
	ReadingsFetched   prometheus.Gauge
	FetchFallbacks    *prometheus.CounterVec
	UpdatesEmitted    prometheus.Counter
	PersistErrors     prometheus.Counter
	BusPublishes      *prometheus.CounterVec
	HandlerPanics     *prometheus.CounterVec
	ActiveSessions    *prometheus.GaugeVec
	DroppedEvents     *prometheus.CounterVec
	StockMutations    *prometheus.CounterVec
	ReordersCreated   prometheus.Counter
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PollCycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthwatch_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles",
			Buckets: prometheus.DefBuckets,
		}),

		ReadingsFetched: f.NewGauge(prometheus.GaugeOpts{
			Name: "healthwatch_poll_readings_fetched",
			Help: "Readings fetched in the last poll cycle",
		}),

		FetchFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_fetch_fallbacks_total",
			Help: "Total number of fetches served from synthetic data, by reason",
		}, []string{"reason"}),

		UpdatesEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "healthwatch_updates_emitted_total",
			Help: "Total number of health updates published",
		}),

		PersistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "healthwatch_persist_errors_total",
			Help: "Total number of persistence failures swallowed by the poll loop",
		}),

		BusPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_bus_publishes_total",
			Help: "Total number of events published on the bus, by topic",
		}, []string{"topic"}),

		HandlerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_bus_handler_panics_total",
			Help: "Total number of recovered subscriber panics, by topic",
		}, []string{"topic"}),

		ActiveSessions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "healthwatch_stream_sessions_active",
			Help: "Live streaming sessions, by transport",
		}, []string{"transport"}),

		DroppedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_stream_events_dropped_total",
			Help: "Total number of events dropped because a session queue was full, by transport",
		}, []string{"transport"}),

		StockMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_stock_mutations_total",
			Help: "Total number of stock movements, by event",
		}, []string{"event"}),

		ReordersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "healthwatch_reorders_created_total",
			Help: "Total number of reorder requests created",
		}),
	}
}

func (m *Metrics) CycleCompleted(res poller.TickResult, took time.Duration) {
	m.PollCycleDuration.Observe(took.Seconds())
	m.ReadingsFetched.Set(float64(res.Fetched))
	m.UpdatesEmitted.Add(float64(res.Emitted))
	m.PersistErrors.Add(float64(res.PersistErrors))
}

func (m *Metrics) RecordFallback(reason string) {
	m.FetchFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) Published(topic string, delivered int) {
	m.BusPublishes.WithLabelValues(topic).Inc()
}

func (m *Metrics) HandlerPanicked(topic string) {
	m.HandlerPanics.WithLabelValues(topic).Inc()
}

func (m *Metrics) SessionOpened(transport string) {
	m.ActiveSessions.WithLabelValues(transport).Inc()
}

func (m *Metrics) SessionClosed(transport string) {
	m.ActiveSessions.WithLabelValues(transport).Dec()
}

func (m *Metrics) EventDropped(transport string) {
	m.DroppedEvents.WithLabelValues(transport).Inc()
}

func (m *Metrics) StockMutated(event string) {
	m.StockMutations.WithLabelValues(event).Inc()
}

func (m *Metrics) ReorderCreated() {
	m.ReordersCreated.Inc()
}
