package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers the API surface: request accounting plus
// retrieval-specific observations.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal      *prometheus.CounterVec
	retrievalEmptyTotal *prometheus.CounterVec
	retrievalDepth      *prometheus.HistogramVec
	retrievalDuration   *prometheus.HistogramVec
	submitChunksTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total successful retrieval requests.",
		},
		[]string{"service"},
	)
	retrievalEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "retrieval",
			Name:      "empty_total",
			Help:      "Total retrieval requests that returned no results.",
		},
		[]string{"service"},
	)
	retrievalDepth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "retrieval",
			Name:      "result_depth",
			Help:      "Distribution of final results per retrieval request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 13, 21},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	submitChunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "ingest",
			Name:      "submitted_chunks_total",
			Help:      "Total chunks accepted for ingestion by doc type.",
		},
		[]string{"service", "doc_type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalEmptyTotal,
		retrievalDepth,
		retrievalDuration,
		submitChunksTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		retrievalTotal:      retrievalTotal,
		retrievalEmptyTotal: retrievalEmptyTotal,
		retrievalDepth:      retrievalDepth,
		retrievalDuration:   retrievalDuration,
		submitChunksTotal:   submitChunksTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, resultCount int, duration time.Duration) {
	m.retrievalTotal.WithLabelValues(service).Inc()
	m.retrievalDepth.WithLabelValues(service).Observe(float64(resultCount))
	m.retrievalDuration.WithLabelValues(service).Observe(duration.Seconds())
	if resultCount == 0 {
		m.retrievalEmptyTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordSubmittedChunks(service, docType string, count int) {
	if count <= 0 {
		return
	}
	m.submitChunksTotal.WithLabelValues(service, docType).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
