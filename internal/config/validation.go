// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the process configuration: defaults, then a strict
// YAML file, then VIDRESOLVE_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/validate"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), logLevels)

	// Resolver
	v.Positive("Resolver.RetryBudget", cfg.Resolver.RetryBudget)
	v.NonNegativeDuration("Resolver.BackoffBase", cfg.Resolver.BackoffBase)
	v.PositiveDuration("Resolver.SuccessTTL", cfg.Resolver.SuccessTTL)
	v.PositiveDuration("Resolver.FailureTTL", cfg.Resolver.FailureTTL)
	v.NonNegativeDuration("Resolver.Deadline", cfg.Resolver.Deadline)

	v.Positive("Breaker.Threshold", cfg.Breaker.Threshold)
	v.PositiveDuration("Breaker.ResetTimeout", cfg.Breaker.ResetTimeout)

	// Backends
	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{BackendMemory, BackendRedis, BackendBadger})
	v.Path("Cache.BadgerPath", cfg.Cache.BadgerPath)
	v.OneOf("Ledger.Backend", cfg.Ledger.Backend, []string{BackendMemory, BackendSQLite})
	v.Path("Ledger.Path", cfg.Ledger.Path)
	v.NonNegativeDuration("Ledger.Retention", cfg.Ledger.Retention)
	if cfg.Ledger.Backend == BackendSQLite {
		v.NotEmpty("Ledger.Path", cfg.Ledger.Path)
	}
	v.OneOf("Queue.Backend", cfg.Queue.Backend, []string{BackendMemory, BackendRedis})
	v.Positive("Queue.Workers", cfg.Queue.Workers)
	v.PositiveDuration("Queue.MarkerTTL", cfg.Queue.MarkerTTL)
	if cfg.Cache.Backend == BackendRedis || cfg.Queue.Backend == BackendRedis {
		v.NotEmpty("Redis.Addr", cfg.Redis.Addr)
		v.Range("Redis.DB", cfg.Redis.DB, 0, 15)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("Telemetry.SamplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	// 0 disables inbound rate limiting.
	v.NonNegative("API.RateLimitPerMinute", cfg.API.RateLimitPerMinute)

	validateProviders(v, cfg.Providers)

	return v.Err()
}

func validateProviders(v *validate.Validator, providers []ProviderSpec) {
	if len(providers) == 0 {
		v.AddError("Providers", "at least one provider is required", nil)
		return
	}

	seen := make(map[string]struct{}, len(providers))
	for i, p := range providers {
		field := fmt.Sprintf("Providers[%d]", i)
		v.NotEmpty(field+".Name", p.Name)
		if _, dup := seen[p.Name]; dup {
			v.AddError(field+".Name", "duplicate provider name", p.Name)
		}
		seen[p.Name] = struct{}{}

		v.OneOf(field+".Shape", p.Shape, ProviderShapes)
		v.URL(field+".BaseURL", p.BaseURL, []string{"http", "https"})
		v.PositiveDuration(field+".Timeout", p.Timeout)
		v.NonNegative(field+".Burst", p.Burst)
		if p.RatePerSecond < 0 {
			v.AddError(field+".RatePerSecond", "rate cannot be negative", p.RatePerSecond)
		}
		for tier, h := range p.TierHeights {
			if _, err := media.ParseQualityTier(tier); err != nil || tier == "" {
				v.AddError(field+".TierHeights", fmt.Sprintf("unknown tier %q", tier), tier)
			}
			if h <= 0 {
				v.AddError(field+".TierHeights", fmt.Sprintf("height for %q must be positive", tier), h)
			}
		}
	}
}
