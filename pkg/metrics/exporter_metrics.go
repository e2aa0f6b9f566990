package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterMetrics holds Prometheus metrics for exporter internal monitoring
type ExporterMetrics struct {
	// Scrape duration histogram (in seconds)
	ScrapeDurationSeconds prometheus.Histogram

	// Scrape error counter
	ScrapeErrorsTotal prometheus.Counter

	// Build info gauge
	BuildInfo *prometheus.GaugeVec

	// API requests by endpoint and status code ("error" when no response)
	APIRequestsTotal *prometheus.CounterVec

	// API request latency by endpoint
	APIRequestDurationSeconds *prometheus.HistogramVec

	// Circuit breaker state (0 = closed, 1 = open, 2 = half-open)
	CircuitBreakerState prometheus.Gauge
}

// NewExporterMetrics creates exporter health metrics and registers them with reg
func NewExporterMetrics(reg prometheus.Registerer, version string) (*ExporterMetrics, error) {
	em := &ExporterMetrics{
		// Buckets: 0.1, 0.2, 0.4, 0.8, 1.6, 3.2
		ScrapeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "central_exporter_scrape_duration_seconds",
			Help:    "Time taken to collect device state from the management API in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 6),
		}),

		ScrapeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "central_exporter_scrape_errors_total",
			Help: "Total number of errors while collecting device state",
		}),

		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "central_exporter_build_info",
			Help: "Build information for the exporter (value is always 1)",
		}, []string{"version"}),

		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "central_api_requests_total",
			Help: "Requests sent to the management API by endpoint and status code",
		}, []string{"endpoint", "code"}),

		APIRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "central_api_request_duration_seconds",
			Help:    "Management API request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}, []string{"endpoint"}),

		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "central_api_circuit_breaker_state",
			Help: "Circuit breaker state for the management API (0 = closed, 1 = open, 2 = half-open)",
		}),
	}

	if err := em.Register(reg); err != nil {
		return nil, err
	}

	em.BuildInfo.WithLabelValues(version).Set(1)

	return em, nil
}

// Register registers exporter metrics with reg
func (em *ExporterMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		em.ScrapeDurationSeconds,
		em.ScrapeErrorsTotal,
		em.BuildInfo,
		em.APIRequestsTotal,
		em.APIRequestDurationSeconds,
		em.CircuitBreakerState,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordScrapeDuration records the duration of a collection attempt
func (em *ExporterMetrics) RecordScrapeDuration(duration float64) {
	em.ScrapeDurationSeconds.Observe(duration)
}

// IncrementScrapeErrors increments the error counter
func (em *ExporterMetrics) IncrementScrapeErrors() {
	em.ScrapeErrorsTotal.Inc()
}

// ObserveRequest records one API request; it satisfies central.RequestObserver
func (em *ExporterMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	em.APIRequestsTotal.WithLabelValues(endpoint, code).Inc()
	em.APIRequestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetCircuitBreakerState records the breaker state as a number
func (em *ExporterMetrics) SetCircuitBreakerState(state int) {
	em.CircuitBreakerState.Set(float64(state))
}
