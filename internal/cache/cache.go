// SPDX-License-Identifier: MIT

// Package cache is the advisory result cache: one live entry per
// (videoId, kind, tier) key, holding either resolved media or a terminal
// failure marker. Expired entries read as absent.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store closed")

// Failure marks a resolution that exhausted every provider.
type Failure struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
}

// Entry is the cached outcome of one resolution.
type Entry struct {
	Key         media.Key            `json:"key"`
	Request     media.Request        `json:"request"`
	Media       *media.ResolvedMedia `json:"media,omitempty"`
	Failure     *Failure             `json:"failure,omitempty"`
	Attempts    int                  `json:"attempts"`
	LastAttempt time.Time            `json:"lastAttempt"`
	StoredAt    time.Time            `json:"storedAt"`
	ExpiresAt   time.Time            `json:"expiresAt"`
}

// Success reports whether the entry holds resolved media.
func (e Entry) Success() bool { return e.Media != nil }

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Stats holds cache performance counters.
type Stats struct {
	Backend   string `json:"backend"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Sets      int64  `json:"sets"`
	Evictions int64  `json:"evictions"`
	Size      int    `json:"size"` // -1 when the backend cannot count cheaply
}

// Store is a flat key->entry store with per-entry TTL.
type Store interface {
	// Get returns the live entry for key. found is false when the key is
	// missing or expired; expired entries are removed on the way.
	Get(ctx context.Context, key media.Key) (e Entry, found bool, err error)
	// Put overwrites the entry for key, setting ExpiresAt to now+ttl.
	Put(ctx context.Context, key media.Key, e Entry, ttl time.Duration) error
	Stats() Stats
	Close() error
}

// HealthChecker is implemented by stores backed by a remote service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// stamp fills the bookkeeping fields written by every backend on Put.
func stamp(key media.Key, e Entry, now time.Time, ttl time.Duration) Entry {
	e.Key = key
	e.StoredAt = now
	e.ExpiresAt = now.Add(ttl)
	return e
}

type noOpStore struct{}

// NewNoOpStore returns a store that never remembers anything.
func NewNoOpStore() Store { return noOpStore{} }

func (noOpStore) Get(context.Context, media.Key) (Entry, bool, error) { return Entry{}, false, nil }
func (noOpStore) Put(context.Context, media.Key, Entry, time.Duration) error {
	return nil
}
func (noOpStore) Stats() Stats { return Stats{Backend: "noop"} }
func (noOpStore) Close() error { return nil }
