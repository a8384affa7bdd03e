package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and job queue Prometheus metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_documents_total",
			Help:      "Documents processed by the ingestion pipeline",
		},
		[]string{"kind", "status"}, // status: "indexed" / "failed"
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragdex",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion duration per document",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_chunks_total",
			Help:      "Chunks written by the ingestion pipeline",
		},
	)

	IngestScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_scanned_documents_total",
			Help:      "Documents flagged as likely scanned images without a text layer",
		},
	)

	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragdex",
			Name:      "ingest_queue_depth",
			Help:      "Jobs waiting in the ingest queue",
		},
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_jobs_total",
			Help:      "Ingest jobs by terminal state",
		},
		[]string{"state"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestScannedTotal)
	prometheus.MustRegister(IngestQueueDepth)
	prometheus.MustRegister(IngestJobsTotal)
	ingestMetricsRegistered = true
}
