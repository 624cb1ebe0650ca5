package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swim_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// CSV import metrics.
	Imports    *prometheus.CounterVec // labels: kind={visitors,weather}, result={success,empty,parse_error,failed}
	ImportRows *prometheus.CounterVec // labels: kind, outcome={imported,dropped,invalid}
	Published  *prometheus.CounterVec // labels: kind, outcome={success,error}

	// Weather fetch metrics.
	WeatherCache       *prometheus.CounterVec   // labels: kind={current,forecast}, result={hit,miss}
	WeatherRequests    *prometheus.CounterVec   // labels: kind, outcome={success,invalid_key,rate_limited,not_found,error}
	WeatherAPIDuration *prometheus.HistogramVec // labels: kind

	// Scheduled weather recorder.
	RecorderRuns *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "CSV imports by kind and result.",
		}, []string{"kind", "result"}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "CSV rows seen by import, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_batches_published_total",
			Help:      "Imported batches handed to the event publisher, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "OpenWeatherMap requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		RecorderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_recorder_runs_total",
			Help:      "Scheduled weather recorder runs by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Imports,
		m.ImportRows,
		m.Published,
		m.WeatherCache,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.RecorderRuns,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
