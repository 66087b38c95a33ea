// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/daemon"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/resolver"
	"github.com/ManuGH/vidresolve/internal/version"
)

type resolveFailure struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// runResolveCLI resolves one video through the configured provider chain and
// prints the result as JSON. Exit codes: 0 resolved, 1 failed, 2 usage.
func runResolveCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidresolve resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	kind := fs.String("kind", string(media.KindVideo), "media kind: video or audio")
	tier := fs.String("tier", string(media.DefaultTier), "quality tier: low, medium or high")
	timeout := fs.Duration("timeout", time.Minute, "overall timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: vidresolve resolve [flags] <video id or URL>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)
	// Flags may also follow the id.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	id, err := media.ParseVideoID(input)
	if err != nil {
		_ = enc.Encode(resolveFailure{Error: err.Error(), Kind: string(resolver.KindInvalidRequest)})
		return 1
	}
	req, err := media.NewRequest(id, *kind, *tier)
	if err != nil {
		_ = enc.Encode(resolveFailure{Error: err.Error(), Kind: string(resolver.KindInvalidRequest)})
		return 1
	}

	// Logs go to stderr so stdout stays machine readable.
	xglog.Configure(xglog.Config{Level: "warn", Output: stderr, Service: "vidresolve", Version: version.Version})

	cfg, err := config.NewLoader(resolveConfigPath(*configPath), version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	// Bound the shared resolver run by the command's timeout.
	if cfg.Resolver.Deadline <= 0 || *timeout < cfg.Resolver.Deadline {
		cfg.Resolver.Deadline = *timeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Startup error:\n  %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()

	m, err := rt.Service.Resolve(ctx, req)
	if err != nil {
		out := resolveFailure{Error: err.Error()}
		var rerr *resolver.ResolutionError
		if errors.As(err, &rerr) {
			out.Kind = string(rerr.Kind)
			if cause := rerr.Cause(); cause != nil {
				fmt.Fprintf(stderr, "provider errors:\n  %v\n", cause)
			}
		}
		_ = enc.Encode(out)
		return 1
	}

	_ = enc.Encode(m)
	return 0
}
