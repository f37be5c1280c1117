package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the ingestion worker: batch outcomes and per-doc-type
// indexing counters.
type WorkerMetrics struct {
	registry *prometheus.Registry

	batchTotal    *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchInFlight prometheus.Gauge
	indexedTotal  *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "worker",
			Name:      "batch_process_total",
			Help:      "Total processed chunk batches by status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Subsystem: "worker",
			Name:      "batch_process_duration_seconds",
			Help:      "Batch processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finrag",
			Subsystem: "worker",
			Name:      "batch_process_in_flight",
			Help:      "Number of in-flight batch ingestions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "worker",
			Name:      "chunks_indexed_total",
			Help:      "Total chunks indexed by doc type.",
		},
		[]string{"service", "doc_type"},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Subsystem: "worker",
			Name:      "chunks_rejected_total",
			Help:      "Total chunks rejected during ingestion by doc type.",
		},
		[]string{"service", "doc_type"},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, indexedTotal, rejectedTotal)

	return &WorkerMetrics{
		registry:      registry,
		batchTotal:    batchTotal,
		batchDuration: batchDuration,
		batchInFlight: batchInFlight,
		indexedTotal:  indexedTotal,
		rejectedTotal: rejectedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(service string, duration time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.batchTotal.WithLabelValues(service, status).Inc()
	m.batchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordIndexed(service, docType string, count int) {
	if count <= 0 {
		return
	}
	m.indexedTotal.WithLabelValues(service, docType).Add(float64(count))
}

func (m *WorkerMetrics) RecordRejected(service, docType string, count int) {
	if count <= 0 {
		return
	}
	m.rejectedTotal.WithLabelValues(service, docType).Add(float64(count))
}
