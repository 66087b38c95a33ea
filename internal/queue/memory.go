// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

type marker struct {
	jobID   string
	expires time.Time
}

// MemoryQueue is an in-process Queue backed by a buffered channel.
type MemoryQueue struct {
	mu      sync.Mutex
	markers map[media.Key]marker
	jobs    chan Job
	ttl     time.Duration
	now     func() time.Time
	closed  bool
}

// NewMemoryQueue returns a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int, markerTTL time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	if markerTTL <= 0 {
		markerTTL = DefaultMarkerTTL
	}
	return &MemoryQueue{
		markers: make(map[media.Key]marker),
		jobs:    make(chan Job, capacity),
		ttl:     markerTTL,
		now:     time.Now,
	}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, req media.Request) (Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Job{}, false, ErrClosed
	}
	now := q.now()
	key := req.Key()
	if m, ok := q.markers[key]; ok && now.Before(m.expires) {
		return Job{ID: m.jobID, Request: req, Key: key}, false, nil
	}

	job := NewJob(req, now)
	select {
	case q.jobs <- job:
	default:
		return Job{}, false, ErrFull
	}
	q.markers[key] = marker{jobID: job.ID, expires: now.Add(q.ttl)}
	return job, true, nil
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return Job{}, ErrClosed
		}
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Ack implements Queue. Only the job that set the marker clears it.
func (q *MemoryQueue) Ack(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if m, ok := q.markers[job.Key]; ok && m.jobID == job.ID {
		delete(q.markers, job.Key)
	}
	return nil
}

// Pending implements Queue.
func (q *MemoryQueue) Pending(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

// Close stops accepting jobs and wakes blocked consumers once drained.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}
