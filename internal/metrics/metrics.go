package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MemoryOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextflow_memory_ops_total",
			Help: "Memory facade operations by outcome.",
		},
		[]string{"op", "status"},
	)

	MemoryOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextflow_memory_op_duration_seconds",
			Help:    "Memory facade operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextflow_embedding_cache_total",
			Help: "Embedding cache lookups by result.",
		},
		[]string{"result"},
	)

	WorkflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextflow_workflow_runs_total",
			Help: "Workflow runs by outcome.",
		},
		[]string{"workflow", "status"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextflow_workflow_step_duration_seconds",
			Help:    "Workflow step latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step", "status"},
	)

	KnowledgeIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextflow_knowledge_ingested_total",
			Help: "Knowledge events consumed from NATS by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MemoryOpsTotal,
		MemoryOpDuration,
		EmbeddingCacheTotal,
		WorkflowRunsTotal,
		StepDuration,
		KnowledgeIngestedTotal,
	)
}
