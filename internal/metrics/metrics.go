// Package metrics exposes Prometheus instrumentation for the job pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verticut_jobs_submitted_total",
		Help: "Jobs submitted to the queue, by type.",
	}, []string{"type"})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verticut_jobs_completed_total",
		Help: "Jobs that finished successfully, by type.",
	}, []string{"type"})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verticut_jobs_failed_total",
		Help: "Job attempts that failed, by type.",
	}, []string{"type"})

	jobsRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verticut_jobs_retried_total",
		Help: "Failed attempts that re-entered the queue, by type.",
	}, []string{"type"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verticut_queue_depth",
		Help: "Job ids currently waiting in the in-memory queue.",
	})

	workersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verticut_workers_busy",
		Help: "Workers currently executing a job.",
	})
)

func JobSubmitted(jobType string) { jobsSubmitted.WithLabelValues(jobType).Inc() }
func JobCompleted(jobType string) { jobsCompleted.WithLabelValues(jobType).Inc() }
func JobFailed(jobType string)    { jobsFailed.WithLabelValues(jobType).Inc() }
func JobRetried(jobType string)   { jobsRetried.WithLabelValues(jobType).Inc() }

func SetQueueDepth(n int)  { queueDepth.Set(float64(n)) }
func SetWorkersBusy(n int) { workersBusy.Set(float64(n)) }
