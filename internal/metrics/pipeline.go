package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naturescout",
			Name:      "extraction_requests_total",
			Help:      "Total number of location extraction requests",
		},
		[]string{"model", "status"},
	)

	ExtractionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "naturescout",
			Name:      "extraction_request_duration_seconds",
			Help:      "Location extraction request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	ExtractionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naturescout",
			Name:      "extraction_tokens_total",
			Help:      "Total extraction tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion"
	)

	VerificationResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naturescout",
			Name:      "verification_results_total",
			Help:      "Place verification outcomes",
		},
		[]string{"result"}, // "verified" / "not_found" / "wrong_city" / "unavailable"
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naturescout",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline run outcomes by cache disposition",
		},
		[]string{"result"}, // "hit" / "miss" / "empty" / "error"
	)

	PipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "naturescout",
			Name:      "pipeline_run_duration_seconds",
			Help:      "Full pipeline run duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	PipelineSharedRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "naturescout",
			Name:      "pipeline_shared_runs_total",
			Help:      "Concurrent run requests coalesced onto an in-flight run",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionRequestDuration)
	prometheus.MustRegister(ExtractionTokensTotal)
	prometheus.MustRegister(VerificationResultsTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineRunDuration)
	prometheus.MustRegister(PipelineSharedRunsTotal)
	pipelineMetricsRegistered = true
}
