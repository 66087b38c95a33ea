// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_provider_attempts_total",
		Help: "Provider adapter attempts by outcome",
	}, []string{"provider", "outcome"}) // outcome=success|timeout|unreachable|invalid_response|not_found|invalid_request

	providerAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidresolve_provider_attempt_duration_seconds",
		Help:    "Wall time of a single provider adapter attempt",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"provider"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_resolutions_total",
		Help: "Final resolution outcomes",
	}, []string{"result"}) // result=success|exhausted|invalid|timeout|cached_success|cached_failure

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_cache_lookups_total",
		Help: "Result cache lookups by result",
	}, []string{"result"}) // result=hit|miss|negative

	cacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidresolve_cache_write_errors_total",
		Help: "Result cache writes that failed (resolution still returned)",
	})

	ledgerAppendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidresolve_ledger_append_errors_total",
		Help: "Attempt ledger appends that failed",
	})

	rateLimitWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidresolve_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the outbound per-provider rate limiter",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"provider"})
)

// RecordProviderAttempt records one adapter attempt.
func RecordProviderAttempt(provider, outcome string, d time.Duration) {
	providerAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	providerAttemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordResolution records the final outcome of a resolution.
func RecordResolution(result string) {
	resolutionsTotal.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a result cache lookup.
func RecordCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncCacheWriteError counts a failed cache write.
func IncCacheWriteError() {
	cacheWriteErrors.Inc()
}

// IncLedgerAppendError counts a failed ledger append.
func IncLedgerAppendError() {
	ledgerAppendErrors.Inc()
}

// ObserveRateLimitWait records how long an outbound call waited for its limiter.
func ObserveRateLimitWait(provider string, d time.Duration) {
	rateLimitWait.WithLabelValues(provider).Observe(d.Seconds())
}
