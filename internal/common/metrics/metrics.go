// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_runs_total",
			Help: "Total number of assessment workflow runs by final status",
		},
		[]string{"status"},
	)

	AssessmentStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_stage_failures_total",
			Help: "Total number of stage failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	AssessmentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assessment_run_duration_seconds",
			Help: "Duration of assessment workflow runs in seconds",
		},
		[]string{"status"},
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

	StateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_state_conflicts_total",
			Help: "Optimistic-concurrency conflicts detected on state save",
		},
	)
)
