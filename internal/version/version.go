// SPDX-License-Identifier: MIT

// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is overridden with -X github.com/ManuGH/vidresolve/internal/version.Version=...
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
