// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/metrics"
	"github.com/ManuGH/vidresolve/internal/telemetry"
)

// Handler processes one job. Its error is logged; the job is acked either way.
type Handler func(ctx context.Context, job Job) error

const (
	ackTimeout   = 5 * time.Second
	retryBackoff = 250 * time.Millisecond
)

// Pool runs W workers draining a Queue.
type Pool struct {
	queue   Queue
	handler Handler
	workers int
	logger  zerolog.Logger
	tracer  trace.Tracer

	active    atomic.Int64
	processed atomic.Int64
}

// NewPool builds a pool with the given concurrency (at least one worker).
func NewPool(q Queue, workers int, h Handler) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:   q,
		handler: h,
		workers: workers,
		logger:  xglog.WithComponent("queue"),
		tracer:  telemetry.Tracer("vidresolve/queue"),
	}
}

// Run blocks until ctx is done or the queue is closed.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			return p.work(ctx, worker)
		})
	}
	p.logger.Info().Int("workers", p.workers).Msg("queue workers started")
	err := g.Wait()
	p.logger.Info().Msg("queue workers stopped")
	return err
}

// InFlight returns the number of jobs currently being handled.
func (p *Pool) InFlight() int64 { return p.active.Load() }

// Processed returns the number of jobs handled since start.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Workers returns the configured concurrency.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) work(ctx context.Context, worker int) error {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			p.logger.Warn().Err(err).Int("worker", worker).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryBackoff):
			}
			continue
		}
		p.handle(ctx, worker, job)
	}
}

func (p *Pool) handle(ctx context.Context, worker int, job Job) {
	p.active.Add(1)
	metrics.IncQueueInflight()
	defer func() {
		p.active.Add(-1)
		p.processed.Add(1)
		metrics.DecQueueInflight()
	}()

	ctx = xglog.ContextWithJobID(ctx, job.ID)
	ctx = xglog.ContextWithCacheKey(ctx, job.Key.String())
	ctx, span := p.tracer.Start(ctx, "queue.job", trace.WithAttributes(telemetry.JobAttributes(job.ID, "running")...))
	defer span.End()
	logger := xglog.WithContext(ctx, p.logger).With().Int("worker", worker).Logger()

	// The marker is cleared even if the handler panics.
	defer func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		defer cancel()
		if err := p.queue.Ack(actx, job); err != nil {
			logger.Warn().Err(err).Msg("job ack failed, marker will expire")
		}
	}()

	err := p.safeHandle(ctx, job)
	switch {
	case err == nil:
		metrics.RecordJob("success")
		logger.Debug().Str(xglog.FieldOutcome, "success").Msg("job finished")
	case errors.Is(err, errPanic):
		metrics.RecordJob("panic")
		telemetry.MarkError(span, err, "panic")
		logger.Error().Err(err).Msg("job handler panicked")
	default:
		metrics.RecordJob("failure")
		telemetry.MarkError(span, err, "failure")
		logger.Info().Err(err).Str(xglog.FieldOutcome, "failure").Msg("job finished without media")
	}
}

var errPanic = errors.New("queue: handler panic")

func (p *Pool) safeHandle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return p.handler(ctx, job)
}
