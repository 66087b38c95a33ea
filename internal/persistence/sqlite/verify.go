// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QuickCheck runs PRAGMA quick_check on an open database. It returns nil
// when the database is healthy and an error listing the diagnostic rows
// otherwise.
func QuickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA quick_check;")
	if err != nil {
		return fmt.Errorf("integrity pragma failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return fmt.Errorf("failed to scan integrity result row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity rows: %w", err)
	}

	// Success is exactly a single row with "ok".
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil
	}
	if len(results) == 0 {
		return fmt.Errorf("no results returned from integrity check")
	}
	return fmt.Errorf("integrity check failed: %s", strings.Join(results, "; "))
}
