// Package metrics provides Prometheus metrics instrumentation for the forecaster.
//
// It records how long each pipeline stage took (collect, simulate), how much
// simulation work was done, the headline percentile of every scenario, and
// error tracking. The forecaster is a one-shot command, so metrics live in a
// private registry and are written to a node_exporter textfile on request
// instead of being scraped over HTTP.
//
// Metrics exposed:
//   - cyclecast_adapter_collect_seconds: Histogram of history collection duration
//   - cyclecast_simulate_seconds: Histogram of Monte Carlo simulation duration
//   - cyclecast_history_size: Gauge of cycle times used by the last scenario
//   - cyclecast_trials_total: Counter of simulated trials per scenario
//   - cyclecast_draws_total: Counter of sampled cycle times per scenario
//   - cyclecast_forecast_value: Gauge of forecast totals by scenario and percentile
//   - cyclecast_errors_total: Counter of errors by component and reason
//
// All metrics include the adapter label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	registry *prometheus.Registry

	AdapterCollectSeconds prometheus.Histogram
	SimulateSeconds       *prometheus.HistogramVec
	HistorySize           prometheus.Gauge
	TrialsTotal           *prometheus.CounterVec
	DrawsTotal            *prometheus.CounterVec
	ForecastValue         *prometheus.GaugeVec
	ErrorsTotal           *prometheus.CounterVec
}

// New creates all metrics and registers them in a fresh registry.
func New(adapter string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"adapter": adapter}

	return &Metrics{
		registry: reg,

		AdapterCollectSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "cyclecast_adapter_collect_seconds",
			Help:        "Time spent collecting cycle times from adapter",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets, // Default buckets: .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		}),

		SimulateSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "cyclecast_simulate_seconds",
			Help:        "Time spent running Monte Carlo trials",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"scenario"}),

		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "cyclecast_history_size",
			Help:        "Number of cycle times used by the last simulated scenario",
			ConstLabels: labels,
		}),

		TrialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "cyclecast_trials_total",
			Help:        "Total number of simulated trials",
			ConstLabels: labels,
		}, []string{"scenario"}),

		DrawsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "cyclecast_draws_total",
			Help:        "Total number of cycle times sampled across all trials",
			ConstLabels: labels,
		}, []string{"scenario"}),

		ForecastValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "cyclecast_forecast_value",
			Help:        "Forecast total duration at a percentile",
			ConstLabels: labels,
		}, []string{"scenario", "percentile"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "cyclecast_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// Registry returns the registry holding all forecaster metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCollect records the time spent collecting history.
func (m *Metrics) RecordCollect(seconds float64) {
	m.AdapterCollectSeconds.Observe(seconds)
}

// RecordSimulation records the duration and volume of one scenario run.
func (m *Metrics) RecordSimulation(scenario string, seconds float64, trials, items int) {
	m.SimulateSeconds.WithLabelValues(scenario).Observe(seconds)
	m.TrialsTotal.WithLabelValues(scenario).Add(float64(trials))
	m.DrawsTotal.WithLabelValues(scenario).Add(float64(trials) * float64(items))
}

// SetHistorySize sets the number of cycle times in use.
func (m *Metrics) SetHistorySize(n int) {
	m.HistorySize.Set(float64(n))
}

// SetForecastValue sets the forecast total for a scenario and percentile label (e.g. "P85").
func (m *Metrics) SetForecastValue(scenario, percentile string, value float64) {
	m.ForecastValue.WithLabelValues(scenario, percentile).Set(value)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically, as the node_exporter textfile collector expects.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
