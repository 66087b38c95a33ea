// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound calls to third-party providers.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/ManuGH/vidresolve/internal/metrics"
)

var (
	rateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidresolve",
			Name:      "ratelimit_rejected_total",
			Help:      "Outbound calls abandoned while waiting for the provider limiter",
		},
		[]string{"provider"},
	)
)

// Config holds rate limiting configuration for one provider.
type Config struct {
	PerSecond float64 // sustained calls per second; <= 0 disables limiting
	Burst     int     // max burst size
}

// ProviderLimiter keeps one token bucket per provider.
type ProviderLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// New creates a limiter set from per-provider configuration.
// Providers without an entry (or with PerSecond <= 0) are never throttled.
func New(configs map[string]Config) *ProviderLimiter {
	l := &ProviderLimiter{limiters: make(map[string]*rate.Limiter)}
	for name, cfg := range configs {
		l.Configure(name, cfg)
	}
	return l
}

// Configure installs or replaces the bucket for provider.
func (l *ProviderLimiter) Configure(provider string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg.PerSecond <= 0 {
		delete(l.limiters, provider)
		return
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l.limiters[provider] = rate.NewLimiter(rate.Limit(cfg.PerSecond), burst)
}

// Wait blocks until provider may issue a call or ctx is done.
func (l *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	limiter, ok := l.limiters[provider]
	l.mu.RUnlock()
	if !ok {
		return nil
	}

	start := time.Now()
	err := limiter.Wait(ctx)
	metrics.ObserveRateLimitWait(provider, time.Since(start))
	if err != nil {
		rateLimitRejected.WithLabelValues(provider).Inc()
		return fmt.Errorf("ratelimit %s: %w", provider, err)
	}
	return nil
}

// Allow reports whether provider may issue a call right now without waiting.
func (l *ProviderLimiter) Allow(provider string) bool {
	if l == nil {
		return true
	}
	l.mu.RLock()
	limiter, ok := l.limiters[provider]
	l.mu.RUnlock()
	if !ok {
		return true
	}
	return limiter.Allow()
}
