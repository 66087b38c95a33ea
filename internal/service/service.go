// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package service is the caller-facing facade over the resolver, the result
// cache, the attempt ledger and the work queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/cache"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/ledger"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/metrics"
	"github.com/ManuGH/vidresolve/internal/provider"
	"github.com/ManuGH/vidresolve/internal/queue"
	"github.com/ManuGH/vidresolve/internal/resolver"
)

// ErrQueueDisabled is returned by EnqueueResolve when no queue is wired.
var ErrQueueDisabled = errors.New("service: async queue not configured")

// Resolver is the part of *resolver.Resolver the facade needs.
type Resolver interface {
	Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error)
	Lookup(ctx context.Context, req media.Request) (cache.Entry, bool, error)
}

// StatusReporter lists providers for diagnostics.
type StatusReporter interface {
	Status() []provider.Status
}

// WorkerStats exposes worker pool counters.
type WorkerStats interface {
	Workers() int
	InFlight() int64
	Processed() int64
}

// Options wires the facade. Only Resolver is required.
type Options struct {
	Resolver   Resolver
	Cache      cache.Store
	Ledger     ledger.Ledger
	Queue      queue.Queue
	Describers []provider.Describer
	Providers  StatusReporter
}

// Service implements the external operations.
type Service struct {
	resolver   Resolver
	cache      cache.Store
	ledger     ledger.Ledger
	queue      queue.Queue
	describers []provider.Describer
	providers  StatusReporter
	workers    WorkerStats
	logger     zerolog.Logger
	now        func() time.Time
}

// New builds the facade.
func New(opts Options) (*Service, error) {
	if opts.Resolver == nil {
		return nil, errors.New("service: resolver is required")
	}
	s := &Service{
		resolver:   opts.Resolver,
		cache:      opts.Cache,
		ledger:     opts.Ledger,
		queue:      opts.Queue,
		describers: opts.Describers,
		providers:  opts.Providers,
		logger:     xglog.WithComponent("service"),
		now:        time.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewNoOpStore()
	}
	return s, nil
}

// AttachWorkers registers the pool that drains the queue, for diagnostics.
func (s *Service) AttachWorkers(w WorkerStats) { s.workers = w }

// Resolve resolves synchronously through the cache and provider chain.
func (s *Service) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	return s.resolver.Resolve(ctx, req)
}

// EnqueueResult reports what EnqueueResolve did.
type EnqueueResult struct {
	Key      media.Key `json:"key"`
	JobID    string    `json:"jobId,omitempty"`
	Accepted bool      `json:"accepted"`
	// Cached is set when a live cache entry made the job unnecessary.
	Cached bool `json:"cached"`
}

// EnqueueResolve queues req for background resolution. It is fire-and-forget
// and idempotent per key while a job for that key is in flight.
func (s *Service) EnqueueResolve(ctx context.Context, req media.Request) (EnqueueResult, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return EnqueueResult{}, &resolver.ResolutionError{Kind: resolver.KindInvalidRequest}
	}
	res := EnqueueResult{Key: req.Key()}

	if _, found, err := s.resolver.Lookup(ctx, req); err == nil && found {
		res.Cached = true
		metrics.RecordEnqueue("duplicate")
		return res, nil
	}
	if s.queue == nil {
		metrics.RecordEnqueue("error")
		return res, ErrQueueDisabled
	}

	job, accepted, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		metrics.RecordEnqueue("error")
		return res, fmt.Errorf("enqueue %s: %w", req, err)
	}
	res.Accepted = accepted
	res.JobID = job.ID
	if accepted {
		metrics.RecordEnqueue("accepted")
		logger := xglog.WithContext(ctx, s.logger)
		logger.Debug().
			Str(xglog.FieldJobID, job.ID).
			Str(xglog.FieldCacheKey, res.Key.String()).
			Msg("resolution enqueued")
	} else {
		metrics.RecordEnqueue("duplicate")
	}
	return res, nil
}

// HandleJob is the queue worker handler. The resolver's cache write is the
// only result of a job.
func (s *Service) HandleJob(ctx context.Context, job queue.Job) error {
	_, err := s.resolver.Resolve(ctx, job.Request)
	return err
}

// PeekCached returns the live cache entry for req, if any.
func (s *Service) PeekCached(ctx context.Context, req media.Request) (cache.Entry, bool, error) {
	return s.resolver.Lookup(ctx, req)
}

// Attempts returns the most recent ledger records for req, oldest first.
func (s *Service) Attempts(ctx context.Context, req media.Request, limit int) ([]ledger.AttemptRecord, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, &resolver.ResolutionError{Kind: resolver.KindInvalidRequest}
	}
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.ForKey(ctx, req.Key(), limit)
}

// RecentAttempts returns the most recent ledger records across all keys.
func (s *Service) RecentAttempts(ctx context.Context, limit int) ([]ledger.AttemptRecord, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.Recent(ctx, limit)
}
