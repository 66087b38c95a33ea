// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ledger

import (
	"context"
	"sync"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// MemoryLedger keeps the newest capacity records in a ring.
type MemoryLedger struct {
	mu       sync.RWMutex
	records  []AttemptRecord
	next     int
	full     bool
	appended int64
}

// NewMemoryLedger returns a ledger holding at most capacity records.
func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryLedger{records: make([]AttemptRecord, capacity)}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, rec AttemptRecord) error {
	rec = withID(rec)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[l.next] = rec
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	l.appended++
	return nil
}

// ordered returns the retained records oldest first. Caller holds the lock.
func (l *MemoryLedger) ordered() []AttemptRecord {
	if !l.full {
		return l.records[:l.next]
	}
	out := make([]AttemptRecord, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	return append(out, l.records[:l.next]...)
}

func tail(recs []AttemptRecord, limit int) []AttemptRecord {
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]AttemptRecord, len(recs))
	copy(out, recs)
	return out
}

// ForKey implements Ledger.
func (l *MemoryLedger) ForKey(_ context.Context, key media.Key, limit int) ([]AttemptRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []AttemptRecord
	for _, r := range l.ordered() {
		if r.Key == key {
			matched = append(matched, r)
		}
	}
	return tail(matched, normalizeLimit(limit)), nil
}

// Recent implements Ledger.
func (l *MemoryLedger) Recent(_ context.Context, limit int) ([]AttemptRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.ordered(), normalizeLimit(limit)), nil
}

// Len returns the number of retained records.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.records)
	}
	return l.next
}

// Appended returns the number of records ever appended.
func (l *MemoryLedger) Appended() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.appended
}

// Close implements Ledger.
func (l *MemoryLedger) Close() error { return nil }
