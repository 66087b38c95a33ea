// SPDX-License-Identifier: MIT

// Package daemon wires the configured components into a running service and
// owns their lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/api"
	"github.com/ManuGH/vidresolve/internal/cache"
	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/health"
	"github.com/ManuGH/vidresolve/internal/ledger"
	"github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/platform/httpx"
	"github.com/ManuGH/vidresolve/internal/provider"
	"github.com/ManuGH/vidresolve/internal/queue"
	"github.com/ManuGH/vidresolve/internal/ratelimit"
	"github.com/ManuGH/vidresolve/internal/resolver"
	"github.com/ManuGH/vidresolve/internal/service"
	"github.com/ManuGH/vidresolve/internal/telemetry"
)

const (
	redisCachePrefix = "vidresolve:cache:"
	redisQueuePrefix = "vidresolve:queue:"
	outboundTimeout  = 15 * time.Second
	pingTimeout      = 2 * time.Second
)

// Runtime is the fully wired set of components built from one AppConfig.
type Runtime struct {
	Config   config.AppConfig
	Registry *provider.Registry
	Cache    cache.Store
	Ledger   ledger.Ledger
	Queue    queue.Queue
	Resolver *resolver.Resolver
	Service  *service.Service
	Pool     *queue.Pool
	Health   *health.Manager
	Handler  http.Handler

	logger  zerolog.Logger
	redis   *redis.Client
	closers []namedHook
}

// Build constructs every component named by cfg. On error, whatever was
// already opened is closed again.
func Build(ctx context.Context, cfg config.AppConfig) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	if err := rt.initTelemetry(ctx); err != nil {
		return rt, err
	}

	client := httpx.NewClient(outboundTimeout, httpx.WithTracing(cfg.Telemetry.Enabled))
	rt.Registry, err = provider.NewRegistry(cfg.Providers, provider.RegistryOptions{
		Client:           client,
		Limiter:          ratelimit.New(nil),
		BreakerThreshold: cfg.Breaker.Threshold,
		BreakerReset:     cfg.Breaker.ResetTimeout,
	})
	if err != nil {
		return rt, fmt.Errorf("build providers: %w", err)
	}

	if err := rt.openCache(ctx); err != nil {
		return rt, err
	}
	if err := rt.openLedger(ctx); err != nil {
		return rt, err
	}
	if err := rt.openQueue(ctx); err != nil {
		return rt, err
	}

	rt.Resolver, err = resolver.New(resolver.Options{
		Adapters:              rt.Registry.Adapters(),
		Cache:                 rt.Cache,
		Ledger:                rt.Ledger,
		RetryBudget:           cfg.Resolver.RetryBudget,
		Backoff:               resolver.Backoff{Base: cfg.Resolver.BackoffBase},
		SuccessTTL:            cfg.Resolver.SuccessTTL,
		FailureTTL:            cfg.Resolver.FailureTTL,
		Deadline:              cfg.Resolver.Deadline,
		FallThroughOnNotFound: cfg.Resolver.FallThroughOnNotFound,
	})
	if err != nil {
		return rt, fmt.Errorf("build resolver: %w", err)
	}

	rt.Service, err = service.New(service.Options{
		Resolver:   rt.Resolver,
		Cache:      rt.Cache,
		Ledger:     rt.Ledger,
		Queue:      rt.Queue,
		Describers: rt.Registry.Describers(),
		Providers:  rt.Registry,
	})
	if err != nil {
		return rt, fmt.Errorf("build service: %w", err)
	}
	rt.Pool = queue.NewPool(rt.Queue, cfg.Queue.Workers, rt.Service.HandleJob)
	rt.Service.AttachWorkers(rt.Pool)

	rt.Health = health.NewManager(cfg.Version)
	rt.registerChecks()

	rt.Handler, err = api.NewRouter(api.Deps{
		Service:            rt.Service,
		Health:             rt.Health,
		Version:            cfg.Version,
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		TracingService:     tracingService(cfg),
	})
	if err != nil {
		return rt, fmt.Errorf("build router: %w", err)
	}

	rt.logger.Info().
		Int("providers", rt.Registry.Len()).
		Str("cache", cfg.Cache.Backend).
		Str("ledger", cfg.Ledger.Backend).
		Str("queue", cfg.Queue.Backend).
		Int("workers", cfg.Queue.Workers).
		Msg("runtime built")
	return rt, nil
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return telemetry.DefaultServiceName
}

func (rt *Runtime) addCloser(name string, fn ShutdownHook) {
	rt.closers = append(rt.closers, namedHook{name: name, hook: fn})
}

// Close releases every opened resource in reverse order of opening.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.hook(ctx); err != nil {
			rt.logger.Warn().Err(err).Str("resource", c.name).Msg("close failed")
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) initTelemetry(ctx context.Context) error {
	tc := rt.Config.Telemetry
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        tc.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: rt.Config.Version,
		ExporterType:   tc.Exporter,
		Endpoint:       tc.Endpoint,
		SamplingRate:   tc.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	rt.addCloser("telemetry", tp.Shutdown)
	if tc.Enabled {
		rt.logger.Info().
			Str("endpoint", tc.Endpoint).
			Str("exporter", tc.Exporter).
			Float64("sampling_rate", tc.SamplingRate).
			Msg("Telemetry initialized")
	}
	return nil
}

// redisClient dials the shared client on first use. Cache and queue share it
// and it is closed once.
func (rt *Runtime) redisClient(ctx context.Context) (*redis.Client, error) {
	if rt.redis != nil {
		return rt.redis, nil
	}
	rc := rt.Config.Redis
	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err != nil {
		return nil, err
	}
	rt.redis = client
	rt.addCloser("redis", func(context.Context) error { return client.Close() })
	return client, nil
}

func (rt *Runtime) openCache(ctx context.Context) error {
	cfg := rt.Config.Cache
	switch cfg.Backend {
	case config.BackendMemory, "":
		rt.Cache = cache.NewMemoryStore(cfg.Shards)
		rt.addCloser("cache", func(context.Context) error { return rt.Cache.Close() })
	case config.BackendBadger:
		s, err := cache.OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return fmt.Errorf("open badger cache: %w", err)
		}
		rt.Cache = s
		rt.addCloser("cache", func(context.Context) error { return s.Close() })
	case config.BackendRedis:
		client, err := rt.redisClient(ctx)
		if err != nil {
			return fmt.Errorf("open redis cache: %w", err)
		}
		// The store does not own the shared client.
		rt.Cache = cache.NewRedisStore(client, redisCachePrefix, log.WithComponent("cache"))
	default:
		return fmt.Errorf("cache %q: %w", cfg.Backend, ErrUnknownBackend)
	}
	return nil
}

func (rt *Runtime) openLedger(ctx context.Context) error {
	cfg := rt.Config.Ledger
	switch cfg.Backend {
	case config.BackendMemory, "":
		rt.Ledger = ledger.NewMemoryLedger(cfg.Capacity)
	case config.BackendSQLite:
		l, err := ledger.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return fmt.Errorf("open sqlite ledger: %w", err)
		}
		rt.Ledger = l
	default:
		return fmt.Errorf("ledger %q: %w", cfg.Backend, ErrUnknownBackend)
	}
	rt.addCloser("ledger", func(context.Context) error { return rt.Ledger.Close() })
	return nil
}

func (rt *Runtime) openQueue(ctx context.Context) error {
	cfg := rt.Config.Queue
	switch cfg.Backend {
	case config.BackendMemory, "":
		rt.Queue = queue.NewMemoryQueue(cfg.Capacity, cfg.MarkerTTL)
	case config.BackendRedis:
		client, err := rt.redisClient(ctx)
		if err != nil {
			return fmt.Errorf("open redis queue: %w", err)
		}
		rt.Queue = queue.NewRedisQueue(client, redisQueuePrefix, cfg.MarkerTTL, log.WithComponent("queue"))
	default:
		return fmt.Errorf("queue %q: %w", cfg.Backend, ErrUnknownBackend)
	}
	rt.addCloser("queue", func(context.Context) error { return rt.Queue.Close() })
	return nil
}

type pinger interface {
	HealthCheck(ctx context.Context) error
}

// registerChecks adds a readiness check for every remote backend and one for
// the provider breakers.
func (rt *Runtime) registerChecks() {
	add := func(name string, v any) {
		if p, ok := v.(pinger); ok {
			rt.Health.RegisterChecker(health.NewPingChecker(name, true, func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, pingTimeout)
				defer cancel()
				return p.HealthCheck(ctx)
			}))
		}
	}
	add("cache", rt.Cache)
	add("ledger", rt.Ledger)
	add("queue", rt.Queue)

	rt.Health.RegisterChecker(health.NewBreakerChecker(func() []string {
		statuses := rt.Registry.Status()
		states := make([]string, len(statuses))
		for i, s := range statuses {
			states[i] = s.Breaker
		}
		return states
	}))
}
