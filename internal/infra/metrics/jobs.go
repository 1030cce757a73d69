package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(workerTasksTotal, scheduledRunsTotal, scheduledRunDuration) }

var (
	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Background tasks handled by the worker pool, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed', 'dropped'
	)

	scheduledRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Periodic job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: ok|error
	)

	scheduledRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduled_job_duration_seconds",
			Help:    "Duration of periodic job runs.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveScheduledRun(job string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	scheduledRunsTotal.WithLabelValues(norm(job), status).Inc()
	scheduledRunDuration.WithLabelValues(norm(job)).Observe(d.Seconds())
}
