// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"math"
	"time"
)

// Backoff is the linear retry policy: the wait after failed attempt n
// (1-indexed) of an adapter is Base*n.
type Backoff struct {
	Base time.Duration
}

// Delay returns the wait after attempt. It never decreases as attempt grows
// and saturates instead of overflowing.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if int64(attempt) > math.MaxInt64/int64(b.Base) {
		return time.Duration(math.MaxInt64)
	}
	return b.Base * time.Duration(attempt)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
