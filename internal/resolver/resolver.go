// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resolver drives the ordered provider chain for one request:
// sequential adapters, bounded retries with linear backoff, first success
// wins. Every attempt is ledgered and the final outcome is cached.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/vidresolve/internal/cache"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/ledger"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/metrics"
	"github.com/ManuGH/vidresolve/internal/provider"
	"github.com/ManuGH/vidresolve/internal/telemetry"
)

const (
	DefaultRetryBudget = 2
	DefaultSuccessTTL  = 6 * time.Hour
	DefaultFailureTTL  = 60 * time.Second

	// FailureExhausted is the Failure.Kind of negative cache entries.
	FailureExhausted = "exhausted"
)

// Options configures a Resolver. Adapters are tried in slice order.
type Options struct {
	Adapters    []provider.Adapter
	Cache       cache.Store
	Ledger      ledger.Ledger
	RetryBudget int
	Backoff     Backoff
	SuccessTTL  time.Duration
	FailureTTL  time.Duration
	// Deadline bounds one whole resolution. Zero leaves only the caller's deadline.
	Deadline time.Duration
	// FallThroughOnNotFound moves to the next adapter on the first NotFound
	// instead of spending the remaining retry budget.
	FallThroughOnNotFound bool

	Sleep SleepFunc
	Now   func() time.Time
}

// Resolver resolves requests against the provider chain.
type Resolver struct {
	adapters    []provider.Adapter
	cache       cache.Store
	ledger      ledger.Ledger
	retries     int
	backoff     Backoff
	successTTL  time.Duration
	failureTTL  time.Duration
	deadline    time.Duration
	fallThrough bool
	sleep       SleepFunc
	now         func() time.Time

	group  singleflight.Group
	logger zerolog.Logger
	tracer trace.Tracer
}

// New builds a Resolver. A nil cache disables caching; a nil ledger keeps
// attempts in a bounded in-memory ring.
func New(opts Options) (*Resolver, error) {
	if len(opts.Adapters) == 0 {
		return nil, errors.New("resolver: at least one adapter is required")
	}
	for i, a := range opts.Adapters {
		if a == nil {
			return nil, fmt.Errorf("resolver: adapter %d is nil", i)
		}
	}
	r := &Resolver{
		adapters:    append([]provider.Adapter(nil), opts.Adapters...),
		cache:       opts.Cache,
		ledger:      opts.Ledger,
		retries:     opts.RetryBudget,
		backoff:     opts.Backoff,
		successTTL:  opts.SuccessTTL,
		failureTTL:  opts.FailureTTL,
		deadline:    opts.Deadline,
		fallThrough: opts.FallThroughOnNotFound,
		sleep:       opts.Sleep,
		now:         opts.Now,
		logger:      xglog.WithComponent("resolver"),
		tracer:      telemetry.Tracer("vidresolve/resolver"),
	}
	if r.cache == nil {
		r.cache = cache.NewNoOpStore()
	}
	if r.ledger == nil {
		r.ledger = ledger.NewMemoryLedger(0)
	}
	if r.retries < 1 {
		r.retries = DefaultRetryBudget
	}
	if r.successTTL <= 0 {
		r.successTTL = DefaultSuccessTTL
	}
	if r.failureTTL <= 0 {
		r.failureTTL = DefaultFailureTTL
	}
	if r.sleep == nil {
		r.sleep = Sleep
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Providers returns the adapter names in attempt order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Lookup returns the live cache entry for req without resolving.
func (r *Resolver) Lookup(ctx context.Context, req media.Request) (cache.Entry, bool, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return cache.Entry{}, false, newError(KindInvalidRequest, "")
	}
	return r.cache.Get(ctx, req.Key())
}

// Resolve returns media for req from the cache or the provider chain.
// Concurrent calls for the same key share one chain run.
func (r *Resolver) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		metrics.RecordResolution("invalid")
		r.logger.Debug().Err(err).Str(xglog.FieldEvent, "resolve.invalid").Msg("rejected resolution request")
		return media.ResolvedMedia{}, newError(KindInvalidRequest, "")
	}
	key := req.Key()
	ctx = xglog.ContextWithCacheKey(ctx, key.String())

	if m, hit, err := r.fromCache(ctx, key); hit {
		return m, err
	}

	ch := r.group.DoChan(key.String(), func() (any, error) {
		wctx, cancel := r.workContext(ctx)
		defer cancel()
		return r.run(wctx, req, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return media.ResolvedMedia{}, res.Err
		}
		return res.Val.(media.ResolvedMedia), nil
	case <-ctx.Done():
		// The shared run keeps going for the other waiters and the cache.
		return media.ResolvedMedia{}, newError(KindTimeout, key)
	}
}

// workContext detaches the shared chain run from every caller. Only the
// resolver's own deadline bounds it; each waiter enforces its own deadline
// while waiting, so a short-lived caller cannot cut the run short for the
// callers that joined it.
func (r *Resolver) workContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if r.deadline <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, r.deadline)
}

// fromCache answers from a live cache entry. Cache read errors count as a
// miss.
func (r *Resolver) fromCache(ctx context.Context, key media.Key) (media.ResolvedMedia, bool, error) {
	entry, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key.String()).Msg("result cache read failed")
		metrics.RecordCacheLookup("miss")
		return media.ResolvedMedia{}, false, nil
	}
	if !found {
		metrics.RecordCacheLookup("miss")
		return media.ResolvedMedia{}, false, nil
	}
	if entry.Success() {
		metrics.RecordCacheLookup("hit")
		metrics.RecordResolution("cached_success")
		return *entry.Media, true, nil
	}
	metrics.RecordCacheLookup("negative")
	metrics.RecordResolution("cached_failure")
	rerr := newError(KindAllProvidersExhausted, key)
	rerr.Cached = true
	return media.ResolvedMedia{}, true, rerr
}

func (r *Resolver) run(ctx context.Context, req media.Request, key media.Key) (media.ResolvedMedia, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(telemetry.ResolveAttributes(req.VideoID, string(req.Kind), string(req.Tier), key.String())...))
	defer span.End()

	logger := xglog.WithContext(ctx, r.logger).With().
		Str(xglog.FieldVideoID, req.VideoID).
		Str(xglog.FieldKind, string(req.Kind)).
		Str(xglog.FieldTier, string(req.Tier)).
		Logger()

	resolutionID := ledger.NewID()
	causes := make([]error, 0, len(r.adapters))
	attempts := 0
	var lastAttempt time.Time

	for _, a := range r.adapters {
		var last error
		for attempt := 1; attempt <= r.retries; attempt++ {
			if ctx.Err() != nil {
				return r.timedOut(ctx, span, logger, key, causes)
			}
			attempts++
			m, err := r.attempt(ctx, resolutionID, req, key, a, attempt)
			lastAttempt = r.now()
			if err == nil {
				span.SetAttributes(
					attribute.String(telemetry.ResolveResultKey, "success"),
					attribute.Int(telemetry.ResolveAttemptsKey, attempts),
				)
				span.SetStatus(codes.Ok, "")
				r.store(ctx, key, cache.Entry{Request: req, Media: &m, Attempts: attempts, LastAttempt: lastAttempt}, r.successTTL)
				metrics.RecordResolution("success")
				logger.Info().
					Str(xglog.FieldEvent, "resolve.success").
					Str(xglog.FieldProvider, a.Name()).
					Int(xglog.FieldAttempt, attempts).
					Msg("media resolved")
				return m, nil
			}
			last = err
			kind := provider.Classify(err)

			if kind == provider.KindInvalidRequest {
				telemetry.MarkError(span, err, string(KindInvalidRequest))
				metrics.RecordResolution("invalid")
				logger.Info().Err(err).Str(xglog.FieldProvider, a.Name()).Msg("provider rejected request as invalid")
				return media.ResolvedMedia{}, newError(KindInvalidRequest, key, err)
			}
			if ctx.Err() != nil {
				return r.timedOut(ctx, span, logger, key, append(causes, err))
			}
			if kind == provider.KindNotFound && r.fallThrough {
				break
			}
			if attempt < r.retries {
				wait := r.backoff.Delay(attempt)
				logger.Debug().
					Str(xglog.FieldProvider, a.Name()).
					Int(xglog.FieldAttempt, attempt).
					Dur(xglog.FieldBackoff, wait).
					Msg("retrying provider after backoff")
				if err := r.sleep(ctx, wait); err != nil {
					return r.timedOut(ctx, span, logger, key, append(causes, last))
				}
			}
		}
		causes = append(causes, last)
		logger.Info().
			Err(last).
			Str(xglog.FieldEvent, "resolve.fallthrough").
			Str(xglog.FieldProvider, a.Name()).
			Msg("provider exhausted, falling through")
	}

	rerr := newError(KindAllProvidersExhausted, key, causes...)
	telemetry.MarkError(span, rerr.Cause(), string(KindAllProvidersExhausted))
	span.SetAttributes(attribute.Int(telemetry.ResolveAttemptsKey, attempts))
	r.store(ctx, key, cache.Entry{
		Request:     req,
		Failure:     &cache.Failure{Kind: FailureExhausted, Reason: rerr.Error()},
		Attempts:    attempts,
		LastAttempt: lastAttempt,
	}, r.failureTTL)
	metrics.RecordResolution("exhausted")
	logger.Warn().
		Err(rerr.Cause()).
		Str(xglog.FieldEvent, "resolve.exhausted").
		Int(xglog.FieldAttempt, attempts).
		Msg("all providers exhausted")
	return media.ResolvedMedia{}, rerr
}

// timedOut ends a resolution whose deadline elapsed. Nothing is cached.
func (r *Resolver) timedOut(ctx context.Context, span trace.Span, logger zerolog.Logger, key media.Key, causes []error) (media.ResolvedMedia, error) {
	telemetry.MarkError(span, ctx.Err(), string(KindTimeout))
	metrics.RecordResolution("timeout")
	logger.Warn().Str(xglog.FieldEvent, "resolve.timeout").Msg("resolution deadline elapsed")
	return media.ResolvedMedia{}, newError(KindTimeout, key, causes...)
}

// attempt runs one adapter call and ledgers it.
func (r *Resolver) attempt(ctx context.Context, resolutionID string, req media.Request, key media.Key, a provider.Adapter, n int) (media.ResolvedMedia, error) {
	actx, span := r.tracer.Start(ctx, "provider.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.AttemptAttributes(a.Name(), n)...))
	defer span.End()

	started := r.now()
	m, err := a.Resolve(actx, req)
	ended := r.now()

	if err == nil && !m.Valid() {
		err = provider.Fail(a.Name(), "resolve", provider.KindInvalidResponse, 0, errors.New("adapter returned empty media"))
	}
	if err != nil && ctx.Err() != nil && provider.Classify(err) != provider.KindTimeout {
		err = provider.Fail(a.Name(), "resolve", provider.KindTimeout, 0, err)
	}

	rec := ledger.AttemptRecord{
		ResolutionID: resolutionID,
		Key:          key,
		Request:      req,
		Provider:     a.Name(),
		Attempt:      n,
		StartedAt:    started,
		EndedAt:      ended,
	}
	outcome := "success"
	if err == nil {
		rec.Outcome = ledger.OutcomeSuccess
		rec.Media = &m
		span.SetStatus(codes.Ok, "")
	} else {
		kind := provider.Classify(err)
		outcome = string(kind)
		rec.Outcome = ledger.OutcomeFailure
		rec.FailureKind = string(kind)
		rec.Retryable = kind.Retryable()
		rec.Reason = err.Error()
		telemetry.MarkError(span, err, outcome)
	}
	span.SetAttributes(attribute.String(telemetry.ProviderOutcomeKey, outcome))
	metrics.RecordProviderAttempt(a.Name(), outcome, ended.Sub(started))

	r.logger.Debug().
		Str(xglog.FieldCacheKey, key.String()).
		Str(xglog.FieldProvider, a.Name()).
		Int(xglog.FieldAttempt, n).
		Str(xglog.FieldOutcome, outcome).
		Dur("duration", ended.Sub(started)).
		Msg("provider attempt")

	// The record must land even when the deadline just elapsed.
	if lerr := r.ledger.Append(context.WithoutCancel(ctx), rec); lerr != nil {
		metrics.IncLedgerAppendError()
		r.logger.Warn().Err(lerr).Str(xglog.FieldProvider, a.Name()).Msg("attempt ledger append failed")
	}
	return m, err
}

func (r *Resolver) store(ctx context.Context, key media.Key, e cache.Entry, ttl time.Duration) {
	if err := r.cache.Put(context.WithoutCancel(ctx), key, e, ttl); err != nil {
		metrics.IncCacheWriteError()
		r.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key.String()).Msg("result cache write failed")
	}
}
