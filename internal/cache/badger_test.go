// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_Contract(t *testing.T) {
	clock := newFakeClock()
	s, err := OpenBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.now = clock.Now

	runStoreContract(t, s, clock, clock.Advance)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", Entry{Attempts: 2}, time.Hour))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found, "entries survive reopen until they expire")
	assert.Equal(t, 2, got.Attempts)
}
