// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package service

import (
	"context"
	"time"

	"github.com/ManuGH/vidresolve/internal/cache"
	"github.com/ManuGH/vidresolve/internal/provider"
)

// QueueStats is the queue section of Diagnostics.
type QueueStats struct {
	Enabled   bool   `json:"enabled"`
	Workers   int    `json:"workers"`
	InFlight  int64  `json:"inFlight"`
	Pending   int64  `json:"pending"`
	Processed int64  `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// Diagnostics is a point-in-time snapshot of the resolution machinery.
type Diagnostics struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Providers   []provider.Status `json:"providers"`
	Cache       cache.Stats       `json:"cache"`
	Queue       QueueStats        `json:"queue"`
}

// Diagnostics reports provider order with breaker states, cache counters and
// queue depth.
func (s *Service) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{
		GeneratedAt: s.now().UTC(),
		Providers:   []provider.Status{},
		Cache:       s.cache.Stats(),
	}
	if s.providers != nil {
		d.Providers = s.providers.Status()
	}
	if s.queue != nil {
		d.Queue.Enabled = true
		pending, err := s.queue.Pending(ctx)
		if err != nil {
			d.Queue.Error = err.Error()
		}
		d.Queue.Pending = pending
	}
	if s.workers != nil {
		d.Queue.Workers = s.workers.Workers()
		d.Queue.InFlight = s.workers.InFlight()
		d.Queue.Processed = s.workers.Processed()
	}
	return d
}
