// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Provider shapes understood by the provider registry.
const (
	ShapePiped     = "piped"
	ShapeInvidious = "invidious"
	ShapeDirect    = "direct"
	ShapePostJSON  = "postjson"
	ShapePreflight = "preflight"
	ShapeQueryJSON = "queryjson"
)

// ProviderShapes lists every supported provider shape.
var ProviderShapes = []string{ShapePiped, ShapeInvidious, ShapeDirect, ShapePostJSON, ShapePreflight, ShapeQueryJSON}

// AppConfig is the effective, validated process configuration.
type AppConfig struct {
	Version    string
	ListenAddr string
	LogLevel   string

	Resolver  ResolverConfig
	Breaker   BreakerConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Ledger    LedgerConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	API       APIConfig

	// Providers is sorted by Priority (stable, lower first) at load time and
	// is read-only afterwards.
	Providers []ProviderSpec
}

// ProviderSpec describes one provider endpoint.
type ProviderSpec struct {
	Name          string
	Shape         string
	BaseURL       string
	Timeout       time.Duration
	Priority      int
	TierHeights   map[string]int
	Headers       map[string]string
	RatePerSecond float64
	Burst         int
}

// ResolverConfig controls the fallback loop.
type ResolverConfig struct {
	RetryBudget           int           // attempts per adapter (R)
	BackoffBase           time.Duration // wait after attempt k is BackoffBase*k
	SuccessTTL            time.Duration
	FailureTTL            time.Duration
	Deadline              time.Duration // overall budget for one resolution; 0 means caller deadline only
	FallThroughOnNotFound bool
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend    string
	Shards     int
	BadgerPath string // empty runs badger in memory
}

// RedisConfig is shared by the redis cache and queue backends.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig selects the attempt ledger backend.
type LedgerConfig struct {
	Backend   string
	Path      string
	Capacity  int           // memory backend ring size
	Retention time.Duration // sqlite prune horizon; 0 keeps everything
}

// QueueConfig configures async resolution.
type QueueConfig struct {
	Backend   string
	Workers   int
	Capacity  int
	MarkerTTL time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string // grpc|http
	Endpoint     string
	SamplingRate float64
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

// FileConfig represents the YAML configuration structure.
type FileConfig struct {
	Listen    string         `yaml:"listen,omitempty"`
	LogLevel  string         `yaml:"logLevel,omitempty"`
	Resolver  *ResolverFile  `yaml:"resolver,omitempty"`
	Breaker   *BreakerFile   `yaml:"breaker,omitempty"`
	Cache     *CacheFile     `yaml:"cache,omitempty"`
	Redis     *RedisFile     `yaml:"redis,omitempty"`
	Ledger    *LedgerFile    `yaml:"ledger,omitempty"`
	Queue     *QueueFile     `yaml:"queue,omitempty"`
	Telemetry *TelemetryFile `yaml:"telemetry,omitempty"`
	API       *APIFile       `yaml:"api,omitempty"`
	Providers []ProviderFile `yaml:"providers,omitempty"`
}

type ResolverFile struct {
	RetryBudget           int    `yaml:"retryBudget,omitempty"`
	BackoffBase           string `yaml:"backoffBase,omitempty"` // e.g. "500ms"
	SuccessTTL            string `yaml:"successTTL,omitempty"`  // e.g. "6h"
	FailureTTL            string `yaml:"failureTTL,omitempty"`  // e.g. "60s"
	Deadline              string `yaml:"deadline,omitempty"`
	FallThroughOnNotFound *bool  `yaml:"fallThroughOnNotFound,omitempty"`
}

type BreakerFile struct {
	Threshold    int    `yaml:"threshold,omitempty"`
	ResetTimeout string `yaml:"resetTimeout,omitempty"`
}

type CacheFile struct {
	Backend    string `yaml:"backend,omitempty"`
	Shards     int    `yaml:"shards,omitempty"`
	BadgerPath string `yaml:"badgerPath,omitempty"`
}

type RedisFile struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

type LedgerFile struct {
	Backend   string `yaml:"backend,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Capacity  int    `yaml:"capacity,omitempty"`
	Retention string `yaml:"retention,omitempty"`
}

type QueueFile struct {
	Backend   string `yaml:"backend,omitempty"`
	Workers   int    `yaml:"workers,omitempty"`
	Capacity  int    `yaml:"capacity,omitempty"`
	MarkerTTL string `yaml:"markerTTL,omitempty"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

type APIFile struct {
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute,omitempty"`
	ShutdownTimeout    string `yaml:"shutdownTimeout,omitempty"`
}

// ProviderFile is one entry of the providers list.
type ProviderFile struct {
	Name          string            `yaml:"name"`
	Shape         string            `yaml:"shape"`
	BaseURL       string            `yaml:"baseUrl"`
	Timeout       string            `yaml:"timeout,omitempty"`
	Priority      int               `yaml:"priority,omitempty"`
	TierHeights   map[string]int    `yaml:"tierHeights,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	RatePerSecond float64           `yaml:"ratePerSecond,omitempty"`
	Burst         int               `yaml:"burst,omitempty"`
}
