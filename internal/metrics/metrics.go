package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockLens/internal/model"
)

// Metrics holds all Prometheus metrics of the service. It implements the
// indicator and collector observer interfaces.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec   // labels: route, status
	HTTPDuration    *prometheus.HistogramVec // labels: route
	Computations    *prometheus.CounterVec   // labels: indicator, outcome
	ComputeDuration *prometheus.HistogramVec // labels: indicator
	SeriesCache     *prometheus.CounterVec   // labels: tier, result
	Fetches         *prometheus.CounterVec   // labels: provider, status
	FetchDuration   *prometheus.HistogramVec // labels: provider
	Signals         *prometheus.CounterVec   // labels: kind
	ScanLastSuccess prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocklens_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_indicator_computations_total",
			Help: "Indicator computations by outcome (ok, unavailable, unknown)",
		}, []string{"indicator", "outcome"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocklens_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}, []string{"indicator"}),
		SeriesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_series_cache_total",
			Help: "Raw series cache lookups by tier and result",
		}, []string{"tier", "result"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_fetch_total",
			Help: "Upstream data fetches by provider and status",
		}, []string{"provider", "status"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocklens_fetch_duration_seconds",
			Help:    "Upstream data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_signals_total",
			Help: "Signal events detected by kind",
		}, []string{"kind"}),
		ScanLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocklens_watchlist_scan_last_success_timestamp_seconds",
			Help: "Unix time of the last completed watchlist scan",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests, m.HTTPDuration,
		m.Computations, m.ComputeDuration,
		m.SeriesCache, m.Fetches, m.FetchDuration,
		m.Signals, m.ScanLastSuccess,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveCompute(name, outcome string, elapsed time.Duration) {
	m.Computations.WithLabelValues(name, outcome).Inc()
	if elapsed > 0 {
		m.ComputeDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveCache(tier, result string) {
	m.SeriesCache.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) ObserveFetch(provider string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Fetches.WithLabelValues(provider, status).Inc()
	m.FetchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveSignals counts detected events by kind.
func (m *Metrics) ObserveSignals(events []model.SignalEvent) {
	for _, e := range events {
		m.Signals.WithLabelValues(string(e.Kind)).Inc()
	}
}

// ScanCompleted stamps the last successful watchlist scan.
func (m *Metrics) ScanCompleted(at time.Time) {
	m.ScanLastSuccess.Set(float64(at.Unix()))
}
