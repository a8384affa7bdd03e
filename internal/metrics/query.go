package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query engine Prometheus metrics.
var (
	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "query_total",
			Help:      "Queries by outcome",
		},
		[]string{"outcome"}, // "ok" / "weak" / "error"
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragdex",
			Name:      "query_duration_seconds",
			Help:      "Query duration including embedding and rerank",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	QueryCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragdex",
			Name:      "query_candidates",
			Help:      "Vector candidates fetched per query before rerank",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200},
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers query metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryCandidates)
	queryMetricsRegistered = true
}
