// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// BadgerStore keeps entries in an embedded badger database. Badger expires
// keys on its own via WithTTL; Get still checks ExpiresAt.
type BadgerStore struct {
	db    *badger.DB
	now   func() time.Time
	stats struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// OpenBadgerStore opens a store at path. An empty path runs in memory.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key media.Key) (Entry, bool, error) {
	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		s.stats.misses.Add(1)
		return Entry{}, false, fmt.Errorf("badger get: %w", err)
	}
	if e.Expired(s.now()) {
		_ = s.db.Update(func(txn *badger.Txn) error { return txn.Delete([]byte(key)) })
		s.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	s.stats.hits.Add(1)
	return e, true, nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, key media.Key, e Entry, ttl time.Duration) error {
	e = stamp(key, e, s.now(), ttl)
	buf, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), buf).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	s.stats.sets.Add(1)
	return nil
}

// Stats implements Store.
func (s *BadgerStore) Stats() Stats {
	return Stats{
		Backend: "badger",
		Hits:    s.stats.hits.Load(),
		Misses:  s.stats.misses.Load(),
		Sets:    s.stats.sets.Load(),
		Size:    -1,
	}
}

// Close implements Store.
func (s *BadgerStore) Close() error { return s.db.Close() }
