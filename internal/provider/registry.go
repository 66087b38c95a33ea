// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	xnet "github.com/ManuGH/vidresolve/internal/platform/net"
	"github.com/ManuGH/vidresolve/internal/ratelimit"
	"github.com/ManuGH/vidresolve/internal/resilience"
)

// RegistryOptions carries the shared collaborators for every adapter.
type RegistryOptions struct {
	Client           *http.Client
	Limiter          *ratelimit.ProviderLimiter
	BreakerThreshold int
	BreakerReset     time.Duration
	// DisableBreakers skips breaker installation, mainly for tests.
	DisableBreakers bool
}

// Status describes one configured provider for diagnostics.
type Status struct {
	Name      string `json:"name"`
	Shape     string `json:"shape"`
	BaseURL   string `json:"baseUrl"`
	Timeout   string `json:"timeout"`
	Priority  int    `json:"priority"`
	Breaker   string `json:"breaker"`
	Describes bool   `json:"describes"`
}

type entry struct {
	spec    config.ProviderSpec
	adapter Adapter
	guard   *Guard
}

// Registry is the ordered, read-only adapter list built from ProviderSpec.
type Registry struct {
	entries []entry
}

// NewRegistry builds one guarded adapter per spec, in the given order.
func NewRegistry(specs []config.ProviderSpec, opts RegistryOptions) (*Registry, error) {
	r := &Registry{entries: make([]entry, 0, len(specs))}
	for _, spec := range specs {
		a, err := newAdapter(spec, opts.Client)
		if err != nil {
			return nil, err
		}

		if opts.Limiter != nil {
			opts.Limiter.Configure(spec.Name, ratelimit.Config{PerSecond: spec.RatePerSecond, Burst: spec.Burst})
		}
		var breaker *resilience.CircuitBreaker
		if !opts.DisableBreakers {
			breaker = resilience.NewCircuitBreaker("provider_"+spec.Name, opts.BreakerThreshold, opts.BreakerReset,
				resilience.WithFailurePredicate(BreakerFailure))
		}

		guarded := NewGuard(a, breaker, opts.Limiter)
		r.entries = append(r.entries, entry{spec: spec, adapter: guarded, guard: guardOf(guarded)})
	}
	return r, nil
}

func guardOf(a Adapter) *Guard {
	switch g := a.(type) {
	case *Guard:
		return g
	case *describingGuard:
		return g.Guard
	}
	return nil
}

func newAdapter(spec config.ProviderSpec, client *http.Client) (Adapter, error) {
	heights, err := tierHeights(spec.TierHeights)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", spec.Name, err)
	}
	opts := Options{
		Name:        spec.Name,
		BaseURL:     spec.BaseURL,
		Timeout:     spec.Timeout,
		Headers:     spec.Headers,
		TierHeights: heights,
		Client:      client,
	}

	switch Shape(spec.Shape) {
	case ShapePiped:
		return NewPiped(opts), nil
	case ShapeInvidious:
		return NewInvidious(opts), nil
	case ShapeDirect:
		return NewDirect(opts), nil
	case ShapePostJSON:
		return NewPostJSON(opts), nil
	case ShapePreflight:
		return NewPreflight(opts), nil
	case ShapeQueryJSON:
		return NewQueryJSON(opts), nil
	}
	return nil, fmt.Errorf("provider %s: unknown shape %q", spec.Name, spec.Shape)
}

func tierHeights(raw map[string]int) (TierHeights, error) {
	out := make(TierHeights, len(DefaultTierHeights))
	for tier, h := range DefaultTierHeights {
		out[tier] = h
	}
	for name, h := range raw {
		tier, err := media.ParseQualityTier(name)
		if err != nil {
			return nil, err
		}
		out[tier] = h
	}
	return out, nil
}

// Adapters returns the guarded adapters in priority order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.adapter
	}
	return out
}

// Describers returns the adapters that support metadata lookup, in priority order.
func (r *Registry) Describers() []Describer {
	var out []Describer
	for _, e := range r.entries {
		if d, ok := e.adapter.(Describer); ok {
			out = append(out, d)
		}
	}
	return out
}

// Status reports every provider with its breaker state.
func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		_, describes := e.adapter.(Describer)
		out = append(out, Status{
			Name:      e.spec.Name,
			Shape:     e.spec.Shape,
			BaseURL:   xnet.SanitizeURL(e.spec.BaseURL),
			Timeout:   e.spec.Timeout.String(),
			Priority:  e.spec.Priority,
			Breaker:   string(e.guard.BreakerState()),
			Describes: describes,
		})
	}
	return out
}

// Len returns the number of configured providers.
func (r *Registry) Len() int { return len(r.entries) }
