// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvListen                = "VIDRESOLVE_LISTEN"
	EnvLogLevel              = "VIDRESOLVE_LOG_LEVEL"
	EnvRetryBudget           = "VIDRESOLVE_RETRY_BUDGET"
	EnvBackoffBase           = "VIDRESOLVE_BACKOFF_BASE"
	EnvSuccessTTL            = "VIDRESOLVE_SUCCESS_TTL"
	EnvFailureTTL            = "VIDRESOLVE_FAILURE_TTL"
	EnvResolveDeadline       = "VIDRESOLVE_RESOLVE_DEADLINE"
	EnvFallThroughOnNotFound = "VIDRESOLVE_FALLTHROUGH_NOT_FOUND"
	EnvCacheBackend          = "VIDRESOLVE_CACHE_BACKEND"
	EnvRedisAddr             = "VIDRESOLVE_REDIS_ADDR"
	EnvRedisPassword         = "VIDRESOLVE_REDIS_PASSWORD"
	EnvRedisDB               = "VIDRESOLVE_REDIS_DB"
	EnvBadgerPath            = "VIDRESOLVE_BADGER_PATH"
	EnvLedgerBackend         = "VIDRESOLVE_LEDGER_BACKEND"
	EnvLedgerPath            = "VIDRESOLVE_LEDGER_PATH"
	EnvQueueBackend          = "VIDRESOLVE_QUEUE_BACKEND"
	EnvWorkers               = "VIDRESOLVE_WORKERS"
	EnvQueueMarkerTTL        = "VIDRESOLVE_QUEUE_MARKER_TTL"
	EnvTracingEnabled        = "VIDRESOLVE_TRACING_ENABLED"
	EnvOTLPEndpoint          = "VIDRESOLVE_OTLP_ENDPOINT"
	EnvOTLPExporter          = "VIDRESOLVE_OTLP_EXPORTER"
	EnvOTLPSamplingRate      = "VIDRESOLVE_OTLP_SAMPLING_RATE"
	EnvAPIRateLimit          = "VIDRESOLVE_API_RATE_LIMIT"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is strict: defaults -> file (strict YAML) -> env -> sort -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	l.setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	sort.SliceStable(cfg.Providers, func(i, j int) bool {
		return cfg.Providers[i].Priority < cfg.Providers[j].Priority
	})
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func parseDurationField(field, raw string, dst *time.Duration) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.Listen != "" {
		dst.ListenAddr = src.Listen
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}

	if r := src.Resolver; r != nil {
		if r.RetryBudget != 0 {
			dst.Resolver.RetryBudget = r.RetryBudget
		}
		if r.FallThroughOnNotFound != nil {
			dst.Resolver.FallThroughOnNotFound = *r.FallThroughOnNotFound
		}
		for _, f := range []struct {
			name string
			raw  string
			dst  *time.Duration
		}{
			{"resolver.backoffBase", r.BackoffBase, &dst.Resolver.BackoffBase},
			{"resolver.successTTL", r.SuccessTTL, &dst.Resolver.SuccessTTL},
			{"resolver.failureTTL", r.FailureTTL, &dst.Resolver.FailureTTL},
			{"resolver.deadline", r.Deadline, &dst.Resolver.Deadline},
		} {
			if err := parseDurationField(f.name, f.raw, f.dst); err != nil {
				return err
			}
		}
	}

	if b := src.Breaker; b != nil {
		if b.Threshold != 0 {
			dst.Breaker.Threshold = b.Threshold
		}
		if err := parseDurationField("breaker.resetTimeout", b.ResetTimeout, &dst.Breaker.ResetTimeout); err != nil {
			return err
		}
	}

	if c := src.Cache; c != nil {
		if c.Backend != "" {
			dst.Cache.Backend = c.Backend
		}
		if c.Shards != 0 {
			dst.Cache.Shards = c.Shards
		}
		if c.BadgerPath != "" {
			dst.Cache.BadgerPath = c.BadgerPath
		}
	}

	if r := src.Redis; r != nil {
		dst.Redis = RedisConfig{Addr: r.Addr, Password: r.Password, DB: r.DB}
	}

	if lg := src.Ledger; lg != nil {
		if lg.Backend != "" {
			dst.Ledger.Backend = lg.Backend
		}
		if lg.Path != "" {
			dst.Ledger.Path = lg.Path
		}
		if lg.Capacity != 0 {
			dst.Ledger.Capacity = lg.Capacity
		}
		if err := parseDurationField("ledger.retention", lg.Retention, &dst.Ledger.Retention); err != nil {
			return err
		}
	}

	if q := src.Queue; q != nil {
		if q.Backend != "" {
			dst.Queue.Backend = q.Backend
		}
		if q.Workers != 0 {
			dst.Queue.Workers = q.Workers
		}
		if q.Capacity != 0 {
			dst.Queue.Capacity = q.Capacity
		}
		if err := parseDurationField("queue.markerTTL", q.MarkerTTL, &dst.Queue.MarkerTTL); err != nil {
			return err
		}
	}

	if t := src.Telemetry; t != nil {
		if t.Enabled != nil {
			dst.Telemetry.Enabled = *t.Enabled
		}
		if t.Exporter != "" {
			dst.Telemetry.Exporter = t.Exporter
		}
		if t.Endpoint != "" {
			dst.Telemetry.Endpoint = t.Endpoint
		}
		if t.SamplingRate != nil {
			dst.Telemetry.SamplingRate = *t.SamplingRate
		}
	}

	if a := src.API; a != nil {
		if a.RateLimitPerMinute != 0 {
			dst.API.RateLimitPerMinute = a.RateLimitPerMinute
		}
		if err := parseDurationField("api.shutdownTimeout", a.ShutdownTimeout, &dst.API.ShutdownTimeout); err != nil {
			return err
		}
	}

	// A provider list in the file replaces the built-in list entirely.
	if len(src.Providers) > 0 {
		providers := make([]ProviderSpec, 0, len(src.Providers))
		for i, p := range src.Providers {
			spec := ProviderSpec{
				Name:          strings.TrimSpace(p.Name),
				Shape:         strings.ToLower(strings.TrimSpace(p.Shape)),
				BaseURL:       strings.TrimSpace(p.BaseURL),
				Timeout:       defaultProviderTimeout,
				Priority:      p.Priority,
				TierHeights:   p.TierHeights,
				Headers:       p.Headers,
				RatePerSecond: p.RatePerSecond,
				Burst:         p.Burst,
			}
			if err := parseDurationField(fmt.Sprintf("providers[%d].timeout", i), p.Timeout, &spec.Timeout); err != nil {
				return err
			}
			providers = append(providers, spec)
		}
		dst.Providers = providers
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Resolver.RetryBudget = l.envInt(EnvRetryBudget, cfg.Resolver.RetryBudget)
	cfg.Resolver.BackoffBase = l.envDuration(EnvBackoffBase, cfg.Resolver.BackoffBase)
	cfg.Resolver.SuccessTTL = l.envDuration(EnvSuccessTTL, cfg.Resolver.SuccessTTL)
	cfg.Resolver.FailureTTL = l.envDuration(EnvFailureTTL, cfg.Resolver.FailureTTL)
	cfg.Resolver.Deadline = l.envDuration(EnvResolveDeadline, cfg.Resolver.Deadline)
	cfg.Resolver.FallThroughOnNotFound = l.envBool(EnvFallThroughOnNotFound, cfg.Resolver.FallThroughOnNotFound)

	cfg.Cache.Backend = strings.ToLower(l.envString(EnvCacheBackend, cfg.Cache.Backend))
	cfg.Cache.BadgerPath = l.envString(EnvBadgerPath, cfg.Cache.BadgerPath)

	cfg.Redis.Addr = l.envString(EnvRedisAddr, cfg.Redis.Addr)
	cfg.Redis.Password = l.envString(EnvRedisPassword, cfg.Redis.Password)
	cfg.Redis.DB = l.envInt(EnvRedisDB, cfg.Redis.DB)

	cfg.Ledger.Backend = strings.ToLower(l.envString(EnvLedgerBackend, cfg.Ledger.Backend))
	cfg.Ledger.Path = l.envString(EnvLedgerPath, cfg.Ledger.Path)

	cfg.Queue.Backend = strings.ToLower(l.envString(EnvQueueBackend, cfg.Queue.Backend))
	cfg.Queue.Workers = l.envInt(EnvWorkers, cfg.Queue.Workers)
	cfg.Queue.MarkerTTL = l.envDuration(EnvQueueMarkerTTL, cfg.Queue.MarkerTTL)

	cfg.Telemetry.Enabled = l.envBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.Exporter = strings.ToLower(l.envString(EnvOTLPExporter, cfg.Telemetry.Exporter))
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTLPSamplingRate, cfg.Telemetry.SamplingRate)

	cfg.API.RateLimitPerMinute = l.envInt(EnvAPIRateLimit, cfg.API.RateLimitPerMinute)
}
