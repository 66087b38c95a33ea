// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T, clock *fakeClock) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "test:", zerolog.Nop())
	store.now = clock.Now
	return mr, store
}

func TestRedisStore_Contract(t *testing.T) {
	clock := newFakeClock()
	mr, s := setupMiniRedis(t, clock)
	runStoreContract(t, s, clock, func(d time.Duration) {
		clock.Advance(d)
		mr.FastForward(d)
	})
}

func TestRedisStore_NativeTTL(t *testing.T) {
	clock := newFakeClock()
	mr, s := setupMiniRedis(t, clock)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", Entry{Attempts: 1}, 30*time.Second))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, 30*time.Second, mr.TTL("test:k"))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("test:k"))

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_CorruptValueIsMiss(t *testing.T) {
	clock := newFakeClock()
	mr, s := setupMiniRedis(t, clock)
	require.NoError(t, mr.Set("test:k", "{not json"))

	_, found, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(1), s.Stats().Misses)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	clock := newFakeClock()
	mr, s := setupMiniRedis(t, clock)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, s.HealthCheck(ctx))
}

func TestNewRedisClient_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}
