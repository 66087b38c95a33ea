// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/ratelimit"
	"github.com/ManuGH/vidresolve/internal/resilience"
)

// BreakerFailure reports whether err says something about provider health.
// NotFound and InvalidRequest describe the video, not the provider.
func BreakerFailure(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindUnreachable, KindInvalidResponse:
		return true
	}
	return false
}

// Guard wraps an adapter with its outbound rate limit and circuit breaker.
// An open breaker fails the call as Unreachable without network I/O.
type Guard struct {
	next    Adapter
	breaker *resilience.CircuitBreaker
	limiter *ratelimit.ProviderLimiter
}

type describingGuard struct {
	*Guard
	describer Describer
}

// NewGuard wraps next. The result implements Describer when next does.
// A nil breaker or limiter disables that protection.
func NewGuard(next Adapter, breaker *resilience.CircuitBreaker, limiter *ratelimit.ProviderLimiter) Adapter {
	g := &Guard{next: next, breaker: breaker, limiter: limiter}
	if d, ok := next.(Describer); ok {
		return &describingGuard{Guard: g, describer: d}
	}
	return g
}

func (g *Guard) Name() string { return g.next.Name() }

// Unwrap returns the guarded adapter.
func (g *Guard) Unwrap() Adapter { return g.next }

// BreakerState returns the breaker state, or closed when none is installed.
func (g *Guard) BreakerState() resilience.State {
	if g.breaker == nil {
		return resilience.StateClosed
	}
	return g.breaker.State()
}

// Resolve implements Adapter.
func (g *Guard) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	var out media.ResolvedMedia
	err := g.call(ctx, "resolve", func(ctx context.Context) error {
		var err error
		out, err = g.next.Resolve(ctx, req)
		return err
	})
	return out, err
}

func (g *describingGuard) Describe(ctx context.Context, videoID string) (media.VideoInfo, error) {
	var out media.VideoInfo
	err := g.call(ctx, "describe", func(ctx context.Context) error {
		var err error
		out, err = g.describer.Describe(ctx, videoID)
		return err
	})
	return out, err
}

func (g *Guard) call(ctx context.Context, op string, fn func(context.Context) error) error {
	name := g.next.Name()

	// Wait for a token before claiming a breaker slot so a half-open probe
	// is never held by a call that cannot run.
	if err := g.limiter.Wait(ctx, name); err != nil {
		return Fail(name, op, KindTimeout, 0, err)
	}

	if g.breaker == nil {
		return fn(ctx)
	}
	if !g.breaker.Allow() {
		return Fail(name, op, KindUnreachable, 0, resilience.ErrCircuitOpen)
	}
	err := fn(ctx)
	// A call cut short by the caller's cancellation or the overall
	// resolution deadline says nothing about the provider. The adapter's
	// own timeout lives on a child context and still counts.
	if err != nil && ctx.Err() != nil {
		g.breaker.Release()
		return err
	}
	g.breaker.Record(err)
	return err
}
