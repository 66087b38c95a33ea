// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/persistence/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS attempts (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		resolution_id TEXT NOT NULL,
		cache_key     TEXT NOT NULL,
		video_id      TEXT NOT NULL,
		kind          TEXT NOT NULL,
		tier          TEXT NOT NULL,
		provider      TEXT NOT NULL,
		attempt       INTEGER NOT NULL,
		outcome       TEXT NOT NULL,
		failure_kind  TEXT NOT NULL DEFAULT '',
		retryable     INTEGER NOT NULL DEFAULT 0,
		reason        TEXT NOT NULL DEFAULT '',
		locator       TEXT NOT NULL DEFAULT '',
		mime_hint     TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL DEFAULT '',
		resolved_at   INTEGER NOT NULL DEFAULT 0,
		started_at    INTEGER NOT NULL,
		ended_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempts_cache_key ON attempts (cache_key, seq)`,
	`CREATE INDEX IF NOT EXISTS attempts_ended_at ON attempts (ended_at)`,
}

const selectColumns = `id, resolution_id, cache_key, video_id, kind, tier, provider, attempt, outcome,
	failure_kind, retryable, reason, locator, mime_hint, source, resolved_at, started_at, ended_at`

// SQLiteLedger persists attempts in a SQLite table. Append order is the
// autoincrement sequence.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the ledger database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteLedger, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schema...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteLedger{db: db}, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Append implements Ledger.
func (l *SQLiteLedger) Append(ctx context.Context, rec AttemptRecord) error {
	rec = withID(rec)
	var locator, mime, source string
	var resolvedAt int64
	if rec.Media != nil {
		locator, mime, source = rec.Media.Locator, rec.Media.MimeHint, rec.Media.SourceProvider
		resolvedAt = unixNano(rec.Media.ResolvedAt)
	}
	_, err := l.db.ExecContext(ctx, `INSERT INTO attempts (
		id, resolution_id, cache_key, video_id, kind, tier, provider, attempt, outcome,
		failure_kind, retryable, reason, locator, mime_hint, source, resolved_at, started_at, ended_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ResolutionID, string(rec.Key), rec.Request.VideoID, string(rec.Request.Kind), string(rec.Request.Tier),
		rec.Provider, rec.Attempt, string(rec.Outcome), rec.FailureKind, rec.Retryable, rec.Reason,
		locator, mime, source, resolvedAt, unixNano(rec.StartedAt), unixNano(rec.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	return nil
}

// ForKey implements Ledger.
func (l *SQLiteLedger) ForKey(ctx context.Context, key media.Key, limit int) ([]AttemptRecord, error) {
	return l.query(ctx, `SELECT `+selectColumns+` FROM (
		SELECT * FROM attempts WHERE cache_key = ? ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`, string(key), normalizeLimit(limit))
}

// Recent implements Ledger.
func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]AttemptRecord, error) {
	return l.query(ctx, `SELECT `+selectColumns+` FROM (
		SELECT * FROM attempts ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`, normalizeLimit(limit))
}

func (l *SQLiteLedger) query(ctx context.Context, q string, args ...any) ([]AttemptRecord, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AttemptRecord
	for rows.Next() {
		var (
			rec                        AttemptRecord
			key, kind, tier, outcome   string
			locator, mime, source      string
			resolvedAt, started, ended int64
		)
		if err := rows.Scan(&rec.ID, &rec.ResolutionID, &key, &rec.Request.VideoID, &kind, &tier,
			&rec.Provider, &rec.Attempt, &outcome, &rec.FailureKind, &rec.Retryable, &rec.Reason,
			&locator, &mime, &source, &resolvedAt, &started, &ended); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		rec.Key = media.Key(key)
		rec.Request.Kind = media.Kind(kind)
		rec.Request.Tier = media.QualityTier(tier)
		rec.Outcome = Outcome(outcome)
		rec.StartedAt = fromUnixNano(started)
		rec.EndedAt = fromUnixNano(ended)
		if locator != "" {
			rec.Media = &media.ResolvedMedia{
				Locator:        locator,
				MimeHint:       mime,
				SourceProvider: source,
				ResolvedAt:     fromUnixNano(resolvedAt),
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger rows: %w", err)
	}
	return out, nil
}

// Prune deletes records that ended before cutoff and returns how many went.
func (l *SQLiteLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM attempts WHERE ended_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("ledger prune: %w", err)
	}
	return res.RowsAffected()
}

// HealthCheck runs a quick integrity check.
func (l *SQLiteLedger) HealthCheck(ctx context.Context) error {
	return sqlite.QuickCheck(ctx, l.db)
}

// Close implements Ledger.
func (l *SQLiteLedger) Close() error { return l.db.Close() }
