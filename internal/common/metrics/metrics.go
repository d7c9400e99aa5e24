// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	DispatchOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_operations_total",
			Help: "Dispatch operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	DispatchPatchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_patches_applied_total",
			Help: "Appointment patches persisted, by patch kind",
		},
		[]string{"kind"},
	)

	DispatchSuggestions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_suggestions_returned",
			Help:    "Number of doctors returned per suggestion request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	DispatchLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_lock_wait_seconds",
			Help:    "Time spent acquiring per-doctor locks",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	DispatchLockFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_lock_failures_total",
			Help: "Per-doctor lock acquisitions that gave up",
		},
	)
)
