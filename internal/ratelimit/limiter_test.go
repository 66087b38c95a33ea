// SPDX-License-Identifier: MIT

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderLimiter_Burst(t *testing.T) {
	l := New(map[string]Config{"piped-a": {PerSecond: 1, Burst: 3}})

	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow("piped-a") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed, "burst bounds immediate calls")
}

func TestProviderLimiter_UnconfiguredProviderIsUnlimited(t *testing.T) {
	l := New(nil)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("anything"))
	}
	require.NoError(t, l.Wait(context.Background(), "anything"))
}

func TestProviderLimiter_WaitHonorsContext(t *testing.T) {
	l := New(map[string]Config{"slow": {PerSecond: 0.01, Burst: 1}})
	require.NoError(t, l.Wait(context.Background(), "slow"), "first token is available")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "slow")
	assert.Error(t, err, "second call must not wait past the deadline")
}

func TestProviderLimiter_ConfigureDisable(t *testing.T) {
	l := New(map[string]Config{"p": {PerSecond: 0.01, Burst: 1}})
	assert.True(t, l.Allow("p"))
	assert.False(t, l.Allow("p"))

	l.Configure("p", Config{})
	assert.True(t, l.Allow("p"))
}

func TestProviderLimiter_NilIsNoop(t *testing.T) {
	var l *ProviderLimiter
	assert.True(t, l.Allow("p"))
	assert.NoError(t, l.Wait(context.Background(), "p"))
}
