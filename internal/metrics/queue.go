// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_queue_enqueued_total",
		Help: "Async resolve enqueue calls by result",
	}, []string{"result"}) // result=accepted|duplicate|error

	queueInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidresolve_queue_inflight",
		Help: "Jobs currently being processed by workers",
	})

	queueJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_queue_jobs_total",
		Help: "Jobs finished by workers by result",
	}, []string{"result"}) // result=success|failure|panic
)

// RecordEnqueue records the result of an enqueue call.
func RecordEnqueue(result string) {
	queueEnqueuedTotal.WithLabelValues(result).Inc()
}

// IncQueueInflight marks a job as started.
func IncQueueInflight() {
	queueInflight.Inc()
}

// DecQueueInflight marks a job as finished.
func DecQueueInflight() {
	queueInflight.Dec()
}

// RecordJob records the result of a processed job.
func RecordJob(result string) {
	queueJobsTotal.WithLabelValues(result).Inc()
}
