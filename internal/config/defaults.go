// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strconv"
	"time"
)

const (
	defaultListenAddr  = ":8088"
	defaultLogLevel    = "info"
	defaultRetryBudget = 2
	defaultBackoffBase = 500 * time.Millisecond
	defaultSuccessTTL  = 6 * time.Hour
	defaultFailureTTL  = 60 * time.Second
	defaultDeadline    = 45 * time.Second

	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second

	defaultCacheShards     = 16
	defaultLedgerCapacity  = 10000
	defaultQueueWorkers    = 4
	defaultQueueCapacity   = 256
	defaultQueueMarkerTTL  = 2 * time.Minute
	defaultRateLimitPerMin = 120
	defaultShutdownTimeout = 10 * time.Second
	defaultProviderTimeout = 5 * time.Second
)

// DefaultProviders is the built-in provider list: Piped instances, Invidious
// instances, the direct extractor, the pre-flight service, the query-parameter
// service and the JSON POST service, in that order.
func DefaultProviders() []ProviderSpec {
	piped := []string{
		"https://pipedapi.syncpundit.io",
		"https://api-piped.mha.fi",
		"https://piped-api.garudalinux.org",
		"https://piped-api.privacy.com.de",
	}
	invidious := []string{
		"https://vid.puffyan.us/api/v1",
		"https://invidious.slipfox.xyz/api/v1",
		"https://invidious.private.coffee/api/v1",
	}

	specs := make([]ProviderSpec, 0, len(piped)+len(invidious)+4)
	priority := 0
	add := func(name, shape, base string, timeout time.Duration) {
		priority += 10
		specs = append(specs, ProviderSpec{
			Name:     name,
			Shape:    shape,
			BaseURL:  base,
			Timeout:  timeout,
			Priority: priority,
		})
	}

	for i, base := range piped {
		add("piped-"+strconv.Itoa(i+1), ShapePiped, base, defaultProviderTimeout)
	}
	for i, base := range invidious {
		add("invidious-"+strconv.Itoa(i+1), ShapeInvidious, base, defaultProviderTimeout)
	}
	add("direct-extractor", ShapeDirect, "https://t2.vanity.pw/video", 8*time.Second)
	add("vevioz", ShapePreflight, "https://api.vevioz.com/api/button/videos", 8*time.Second)
	add("ytembed", ShapeQueryJSON, "https://ytembed.herokuapp.com/download", 8*time.Second)
	add("cobalt", ShapePostJSON, "https://cobalt.tools/api/json", 10*time.Second)
	return specs
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.ListenAddr = defaultListenAddr
	cfg.LogLevel = defaultLogLevel
	cfg.Resolver = ResolverConfig{
		RetryBudget: defaultRetryBudget,
		BackoffBase: defaultBackoffBase,
		SuccessTTL:  defaultSuccessTTL,
		FailureTTL:  defaultFailureTTL,
		Deadline:    defaultDeadline,
	}
	cfg.Breaker = BreakerConfig{Threshold: defaultBreakerThreshold, ResetTimeout: defaultBreakerReset}
	cfg.Cache = CacheConfig{Backend: BackendMemory, Shards: defaultCacheShards}
	cfg.Ledger = LedgerConfig{Backend: BackendMemory, Capacity: defaultLedgerCapacity}
	cfg.Queue = QueueConfig{
		Backend:   BackendMemory,
		Workers:   defaultQueueWorkers,
		Capacity:  defaultQueueCapacity,
		MarkerTTL: defaultQueueMarkerTTL,
	}
	cfg.Telemetry = TelemetryConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0}
	cfg.API = APIConfig{RateLimitPerMinute: defaultRateLimitPerMin, ShutdownTimeout: defaultShutdownTimeout}
	cfg.Providers = DefaultProviders()
}
