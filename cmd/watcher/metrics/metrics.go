// Package metrics exposes what the watcher sees on the healthwatch event
// streams as Prometheus metrics.
//
// Metrics exposed:
//   - healthwatch_watcher_events_received_total: Counter of events by type
//   - healthwatch_watcher_decode_errors_total: Counter of events that could not be decoded
//   - healthwatch_watcher_last_event_timestamp_seconds: Gauge of the last event arrival time
//   - healthwatch_watcher_indicator_value: Gauge of the last value per country and indicator
//   - healthwatch_watcher_stock_level: Gauge of the last stock level per medicine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsReceived *prometheus.CounterVec
	DecodeErrors   prometheus.Counter
	LastEvent      prometheus.Gauge
	IndicatorValue *prometheus.GaugeVec
	StockLevel     *prometheus.GaugeVec
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthwatch_watcher_events_received_total",
			Help: "Total number of stream events received, by type",
		}, []string{"type"}),

		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "healthwatch_watcher_decode_errors_total",
			Help: "Total number of stream events that could not be decoded",
		}),

		LastEvent: f.NewGauge(prometheus.GaugeOpts{
			Name: "healthwatch_watcher_last_event_timestamp_seconds",
			Help: "Unix time of the last received event",
		}),

		IndicatorValue: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "healthwatch_watcher_indicator_value",
			Help: "Last announced value of a health indicator",
		}, []string{"country", "indicator"}),

		StockLevel: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "healthwatch_watcher_stock_level",
			Help: "Last announced stock level of a medicine",
		}, []string{"medicine"}),
	}
}

func (m *Metrics) RecordEvent(eventType string, at time.Time) {
	m.EventsReceived.WithLabelValues(eventType).Inc()
	m.LastEvent.Set(float64(at.Unix()))
}

func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

func (m *Metrics) SetIndicator(country, indicator string, value float64) {
	m.IndicatorValue.WithLabelValues(country, indicator).Set(value)
}

func (m *Metrics) SetStock(medicine string, stock int) {
	m.StockLevel.WithLabelValues(medicine).Set(float64(stock))
}
