package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the video hub.
type Metrics struct {
	registry            *prometheus.Registry
	switchesTotal       prometheus.Counter
	switchFailuresTotal prometheus.Counter
	activeSource        prometheus.Gauge
	samplesTotal        prometheus.Counter
	samplesDroppedTotal prometheus.Counter
	missingPTSTotal     prometheus.Counter
}

// New creates and registers Prometheus metrics for the hub.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	switchesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videohub_switches_total",
		Help: "Total number of completed source switches",
	})
	switchFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videohub_switch_failures_total",
		Help: "Total number of failed switch attempts",
	})
	activeSource := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "videohub_active_source",
		Help: "Index of the source currently feeding the shared chain",
	})
	samplesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videohub_timing_samples_total",
		Help: "Total number of timestamp samples observed at the tap",
	})
	samplesDroppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videohub_timing_samples_dropped_total",
		Help: "Total number of samples dropped because the tap channel was full",
	})
	missingPTSTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "videohub_missing_pts_total",
		Help: "Total number of buffers observed without a presentation timestamp",
	})

	registry.MustRegister(
		switchesTotal,
		switchFailuresTotal,
		activeSource,
		samplesTotal,
		samplesDroppedTotal,
		missingPTSTotal,
	)

	return &Metrics{
		registry:            registry,
		switchesTotal:       switchesTotal,
		switchFailuresTotal: switchFailuresTotal,
		activeSource:        activeSource,
		samplesTotal:        samplesTotal,
		samplesDroppedTotal: samplesDroppedTotal,
		missingPTSTotal:     missingPTSTotal,
	}
}

// IncSwitches increments the completed switch counter.
func (m *Metrics) IncSwitches() {
	m.switchesTotal.Inc()
}

// IncSwitchFailures increments the failed switch counter.
func (m *Metrics) IncSwitchFailures() {
	m.switchFailuresTotal.Inc()
}

// SetActiveSource sets the active source gauge.
func (m *Metrics) SetActiveSource(index int) {
	m.activeSource.Set(float64(index))
}

// IncSamples increments the observed sample counter.
func (m *Metrics) IncSamples() {
	m.samplesTotal.Inc()
}

// IncSamplesDropped increments the dropped sample counter.
func (m *Metrics) IncSamplesDropped() {
	m.samplesDroppedTotal.Inc()
}

// IncMissingPTS increments the missing presentation timestamp counter.
func (m *Metrics) IncMissingPTS() {
	m.missingPTSTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
