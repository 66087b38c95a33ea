// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ledger is the append-only attempt record. Every adapter attempt is
// written once, never mutated, and read back in append order.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// Outcome is the result of one attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// AttemptRecord is one adapter attempt.
type AttemptRecord struct {
	ID           string               `json:"id"`
	ResolutionID string               `json:"resolutionId"`
	Key          media.Key            `json:"key"`
	Request      media.Request        `json:"request"`
	Provider     string               `json:"provider"`
	Attempt      int                  `json:"attempt"` // 1-indexed within the provider
	Outcome      Outcome              `json:"outcome"`
	FailureKind  string               `json:"failureKind,omitempty"`
	Retryable    bool                 `json:"retryable"`
	Reason       string               `json:"reason,omitempty"`
	Media        *media.ResolvedMedia `json:"media,omitempty"`
	StartedAt    time.Time            `json:"startedAt"`
	EndedAt      time.Time            `json:"endedAt"`
}

// Duration is the wall time of the attempt.
func (r AttemptRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Ledger stores attempt records.
type Ledger interface {
	// Append writes rec. A record without ID gets a fresh one.
	Append(ctx context.Context, rec AttemptRecord) error
	// ForKey returns up to limit most recent records for key, oldest first.
	ForKey(ctx context.Context, key media.Key, limit int) ([]AttemptRecord, error)
	// Recent returns up to limit most recent records, oldest first.
	Recent(ctx context.Context, limit int) ([]AttemptRecord, error)
	Close() error
}

// NewID returns a fresh record or resolution id.
func NewID() string {
	return uuid.NewString()
}

func withID(rec AttemptRecord) AttemptRecord {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	return rec
}

const defaultLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
