// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/vidresolve/internal/health"
	"github.com/ManuGH/vidresolve/internal/platform/httpx"
)

// runHealthcheckCLI probes a running daemon, for container HEALTHCHECKs.
func runHealthcheckCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "healthcheck mode: ready (default) or live")
	base := fs.String("url", "http://localhost:8088", "daemon base URL")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := "/healthz"
	if *mode == "ready" {
		path = "/readyz"
	}

	client := httpx.NewClient(*timeout, httpx.WithUserAgent("vidresolve-healthcheck"))
	resp, err := client.Get(strings.TrimRight(*base, "/") + path)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Healthcheck failed (status): %s\n", resp.Status)
		var ready health.ReadinessResponse
		if json.NewDecoder(resp.Body).Decode(&ready) == nil {
			for _, name := range failingChecks(ready.Checks) {
				c := ready.Checks[name]
				fmt.Fprintf(stderr, "  %s: %s %s\n", name, c.Status, c.Error)
			}
		}
		return 1
	}

	fmt.Fprintf(stdout, "Healthcheck successful (%s)\n", *mode)
	return 0
}

func failingChecks(checks map[string]health.CheckResult) []string {
	var names []string
	for name, c := range checks {
		if c.Status != health.StatusHealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
