// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

const defaultShards = 16

type shard struct {
	mu      sync.Mutex
	entries map[media.Key]Entry
}

// MemoryStore is a sharded in-process store. Expired entries are evicted
// lazily by Get; there is no background sweep.
type MemoryStore struct {
	shards []*shard
	now    func() time.Time
	closed atomic.Bool
	stats  struct {
		hits      atomic.Int64
		misses    atomic.Int64
		sets      atomic.Int64
		evictions atomic.Int64
	}
}

// MemoryOption customises NewMemoryStore.
type MemoryOption func(*MemoryStore)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore returns a store with n shards (16 when n <= 0).
func NewMemoryStore(n int, opts ...MemoryOption) *MemoryStore {
	if n <= 0 {
		n = defaultShards
	}
	s := &MemoryStore{shards: make([]*shard, n), now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[media.Key]Entry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) shardFor(key media.Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key media.Key) (Entry, bool, error) {
	if s.closed.Load() {
		return Entry{}, false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		s.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	if e.Expired(s.now()) {
		delete(sh.entries, key)
		s.stats.evictions.Add(1)
		s.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	s.stats.hits.Add(1)
	return e, true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key media.Key, e Entry, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}
	e = stamp(key, e, s.now(), ttl)
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = e
	sh.mu.Unlock()
	s.stats.sets.Add(1)
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats() Stats {
	size := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		size += len(sh.entries)
		sh.mu.Unlock()
	}
	return Stats{
		Backend:   "memory",
		Hits:      s.stats.hits.Load(),
		Misses:    s.stats.misses.Load(),
		Sets:      s.stats.sets.Load(),
		Evictions: s.stats.evictions.Load(),
		Size:      size,
	}
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
