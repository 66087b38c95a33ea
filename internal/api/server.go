// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP surface of the resolution service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/vidresolve/internal/api/middleware"
	"github.com/ManuGH/vidresolve/internal/cache"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/health"
	"github.com/ManuGH/vidresolve/internal/ledger"
	"github.com/ManuGH/vidresolve/internal/service"
)

// Service is the part of *service.Service the handlers call.
type Service interface {
	Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error)
	EnqueueResolve(ctx context.Context, req media.Request) (service.EnqueueResult, error)
	PeekCached(ctx context.Context, req media.Request) (cache.Entry, bool, error)
	Describe(ctx context.Context, videoID string) (media.VideoInfo, error)
	Attempts(ctx context.Context, req media.Request, limit int) ([]ledger.AttemptRecord, error)
	RecentAttempts(ctx context.Context, limit int) ([]ledger.AttemptRecord, error)
	Diagnostics(ctx context.Context) service.Diagnostics
}

// Deps are the collaborators of the router.
type Deps struct {
	Service Service
	Health  *health.Manager
	Version string

	// RateLimitPerMinute is the per-IP budget for /api routes; zero disables it.
	RateLimitPerMinute int
	// TracingService enables otelhttp spans under this service name.
	TracingService string
	DisableMetrics bool
}

// Server holds the HTTP handlers.
type Server struct {
	svc     Service
	health  *health.Manager
	version string
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Service == nil {
		return nil, errors.New("api: service is required")
	}
	hm := d.Health
	if hm == nil {
		hm = health.NewManager(d.Version)
	}
	s := &Server{svc: d.Service, health: hm, version: d.Version}

	r := chi.NewRouter()
	middleware.ApplyStack(r, middleware.StackConfig{
		EnableMetrics:  !d.DisableMetrics,
		TracingService: d.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if d.RateLimitPerMinute > 0 {
			r.Use(middleware.APIRateLimit(d.RateLimitPerMinute))
		}
		r.Get("/resolve", s.handleResolve)
		r.Post("/resolve/async", s.handleResolveAsync)
		r.Get("/resolve/status", s.handleResolveStatus)
		r.Get("/info", s.handleInfo)
		r.Get("/attempts", s.handleAttempts)
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/version", s.handleVersion)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed",
			"Method Not Allowed", "METHOD_NOT_ALLOWED", "")
	})
	return r, nil
}
