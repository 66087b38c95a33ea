// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package queue is the async resolution work queue: enqueue with per-key
// duplicate suppression, dequeue-with-ack, and a worker pool. Markers carry a
// TTL so a crashed worker cannot pin a key forever.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/google/uuid"
)

var (
	// ErrClosed is returned once the queue has been closed.
	ErrClosed = errors.New("queue: closed")
	// ErrFull is returned when a bounded queue cannot take more jobs.
	ErrFull = errors.New("queue: full")
)

// DefaultMarkerTTL bounds how long a key stays marked in flight without an Ack.
const DefaultMarkerTTL = 2 * time.Minute

// Job is one queued resolution.
type Job struct {
	ID         string        `json:"id"`
	Request    media.Request `json:"request"`
	Key        media.Key     `json:"key"`
	EnqueuedAt time.Time     `json:"enqueuedAt"`
}

// NewJob builds a job for req with a fresh id.
func NewJob(req media.Request, now time.Time) Job {
	return Job{
		ID:         uuid.NewString(),
		Request:    req,
		Key:        req.Key(),
		EnqueuedAt: now.UTC(),
	}
}

// Queue is the work queue capability.
type Queue interface {
	// Enqueue adds a job for req unless one for the same key is in flight.
	// accepted is false for a suppressed duplicate.
	Enqueue(ctx context.Context, req media.Request) (job Job, accepted bool, err error)
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	// Ack clears the in-flight marker of job. Acking twice is harmless.
	Ack(ctx context.Context, job Job) error
	// Pending returns the number of jobs waiting for a worker.
	Pending(ctx context.Context) (int64, error)
	Close() error
}
