// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/daemon"
	"github.com/ManuGH/vidresolve/internal/health"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/version"
)

// envConfigPath names the config file when -config is not given.
const envConfigPath = "VIDRESOLVE_CONFIG"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "resolve":
			os.Exit(runResolveCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:], os.Stdout, os.Stderr))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "vidresolve",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := resolveConfigPath(*configPath)
	cfg, err := config.NewLoader(effectiveConfigPath, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "vidresolve",
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	// Pre-flight checks (fail fast)
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.check_failed").Msg("startup checks failed")
	}

	rt, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "runtime.build_failed").Msg("failed to build runtime")
	}

	mgr, err := daemon.NewManager(daemon.ServerConfigFrom(cfg), daemon.Deps{
		Logger:     logger,
		APIHandler: rt.Handler,
	})
	if err != nil {
		_ = rt.Close(context.Background())
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("listen", cfg.ListenAddr).
		Msg("starting vidresolve")

	if err := daemon.NewApp(logger, mgr, rt).Run(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
	logger.Info().Str("event", "shutdown.complete").Msg("vidresolve stopped")
}

// resolveConfigPath prefers the explicit flag, then $VIDRESOLVE_CONFIG.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	return strings.TrimSpace(config.ParseString(envConfigPath, ""))
}
