// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress middleware of the API.
package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	EnableMetrics bool
	// TracingService names the otelhttp server spans; empty disables tracing.
	TracingService string
	EnableLogging  bool
	// RateLimitPerMinute is the per-IP request budget; zero disables limiting.
	RateLimitPerMinute int
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// Recoverer is outermost so every other layer is covered.
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(AccessLog)
	}
	if cfg.RateLimitPerMinute > 0 {
		r.Use(APIRateLimit(cfg.RateLimitPerMinute))
	}
}
