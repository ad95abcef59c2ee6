package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_total",
			Help: "Committed candidate stage transitions",
		},
		[]string{"from", "to"},
	)

	StageTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_rejected_total",
			Help: "Stage transitions refused by the transition table",
		},
		[]string{"from", "to"},
	)

	VersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_version_conflicts_total",
			Help: "Writes rejected because the candidate changed concurrently",
		},
		[]string{"operation"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_operation_duration_seconds",
			Help:    "Duration of pipeline service operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "code"},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_side_effect_failures_total",
			Help: "Post-commit index or event publish failures",
		},
		[]string{"sink"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by the candidate API",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
