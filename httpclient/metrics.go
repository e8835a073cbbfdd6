package httpclient

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the requests of a client.
// A nil collector records nothing. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestedEvents  prometheus.Counter
	failedEvents    prometheus.Counter
	processedBytes  prometheus.Counter
}

var defaultCollector = sync.OnceValue(func() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
})

// NewMetricsCollector returns the collector registered on the default
// registerer. Every call returns the same collector.
func NewMetricsCollector() *MetricsCollector {
	return defaultCollector()
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
// It panics if the registerer already holds the axiom_client metrics, so it
// must be called once per registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_client_requests_total",
				Help: "Total number of requests sent to the Axiom API",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axiom_client_request_duration_seconds",
				Help:    "Duration of requests to the Axiom API in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ingestedEvents: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "axiom_client_ingested_events_total",
				Help: "Total number of events the server reported as ingested",
			},
		),
		failedEvents: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "axiom_client_failed_events_total",
				Help: "Total number of events the server failed to ingest",
			},
		),
		processedBytes: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "axiom_client_processed_bytes_total",
				Help: "Total number of bytes the server processed while ingesting",
			},
		),
	}
}

// observeRequest records a finished request. A zero status means no response
// was received.
func (m *MetricsCollector) observeRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(method, code).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveIngest records the counters of an ingest response.
func (m *MetricsCollector) ObserveIngest(ingested, failed, processedBytes uint64) {
	if m == nil {
		return
	}
	m.ingestedEvents.Add(float64(ingested))
	m.failedEvents.Add(float64(failed))
	m.processedBytes.Add(float64(processedBytes))
}
