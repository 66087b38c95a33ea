// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// RedisStore is a Redis-backed implementation of Store. Entries are JSON
// values whose Redis TTL matches ExpiresAt.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
	now    func() time.Time
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // key prefix, defaults to "vidresolve:"
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "vidresolve:"
	}
	logger.Info().
		Str("addr", client.Options().Addr).
		Int("db", client.Options().DB).
		Msg("using Redis result cache")
	return &RedisStore{client: client, prefix: prefix, logger: logger, now: time.Now}
}

func (c *RedisStore) redisKey(key media.Key) string {
	return c.prefix + string(key)
}

// Get implements Store.
func (c *RedisStore) Get(ctx context.Context, key media.Key) (Entry, bool, error) {
	val, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		c.stats.misses.Add(1)
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		// A corrupt value is treated as absent; the next Put overwrites it.
		c.logger.Warn().Err(err).Str("key", string(key)).Msg("json unmarshal failed")
		c.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	if e.Expired(c.now()) {
		_ = c.client.Del(ctx, c.redisKey(key)).Err()
		c.stats.misses.Add(1)
		return Entry{}, false, nil
	}

	c.stats.hits.Add(1)
	return e, true, nil
}

// Put implements Store.
func (c *RedisStore) Put(ctx context.Context, key media.Key, e Entry, ttl time.Duration) error {
	e = stamp(key, e, c.now(), ttl)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := c.client.Set(ctx, c.redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.stats.sets.Add(1)
	return nil
}

// Stats implements Store.
func (c *RedisStore) Stats() Stats {
	return Stats{
		Backend: "redis",
		Hits:    c.stats.hits.Load(),
		Misses:  c.stats.misses.Load(),
		Sets:    c.stats.sets.Load(),
		Size:    -1,
	}
}

// Close closes the Redis connection.
func (c *RedisStore) Close() error {
	return c.client.Close()
}

// HealthCheck checks if Redis is available.
func (c *RedisStore) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
