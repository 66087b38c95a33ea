// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vidresolve/internal/queue"
)

const (
	minPruneInterval = time.Minute
	maxPruneInterval = time.Hour
)

// Pruner deletes ledger records older than a horizon.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// App owns the long-lived runtime lifecycle (workers, retention) and
// delegates server management to Manager.
type App struct {
	logger    zerolog.Logger
	manager   Manager
	pool      *queue.Pool
	pruner    Pruner
	retention time.Duration
	closer    func(context.Context) error
	now       func() time.Time
}

// NewApp creates a new App orchestrator over a built runtime.
func NewApp(logger zerolog.Logger, manager Manager, rt *Runtime) *App {
	a := &App{
		logger:  logger,
		manager: manager,
		now:     time.Now,
	}
	if rt != nil {
		a.pool = rt.Pool
		a.closer = rt.Close
		if p, ok := rt.Ledger.(Pruner); ok && rt.Config.Ledger.Retention > 0 {
			a.pruner = p
			a.retention = rt.Config.Ledger.Retention
		}
	}
	return a
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.pool != nil {
		g.Go(func() error {
			err := a.pool.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.pruner != nil {
		g.Go(func() error {
			a.pruneLoop(gctx)
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	err := g.Wait()
	if a.closer != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		err = errors.Join(err, a.closer(closeCtx))
	}
	return err
}

func pruneInterval(retention time.Duration) time.Duration {
	d := retention / 10
	if d < minPruneInterval {
		return minPruneInterval
	}
	if d > maxPruneInterval {
		return maxPruneInterval
	}
	return d
}

func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval(a.retention))
	defer ticker.Stop()

	a.pruneOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pruneOnce(ctx)
		}
	}
}

func (a *App) pruneOnce(ctx context.Context) {
	before := a.now().Add(-a.retention)
	n, err := a.pruner.Prune(ctx, before)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn().Err(err).Str("event", "ledger.prune_failed").Msg("ledger prune failed")
		}
		return
	}
	if n > 0 {
		a.logger.Info().
			Int64("deleted", n).
			Time("before", before).
			Str("event", "ledger.pruned").
			Msg("pruned attempt ledger")
	}
}
