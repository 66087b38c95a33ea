// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/log"
	xnet "github.com/ManuGH/vidresolve/internal/platform/net"
)

// PerformStartupChecks validates the environment before the daemon starts
// serving: storage directories must be writable and addresses parseable.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.Cache.Backend == config.BackendBadger && cfg.Cache.BadgerPath != "" {
		if err := checkDataDir(logger, cfg.Cache.BadgerPath); err != nil {
			return fmt.Errorf("badger directory check failed: %w", err)
		}
	}
	if cfg.Ledger.Backend == config.BackendSQLite {
		if err := checkDataDir(logger, filepath.Dir(cfg.Ledger.Path)); err != nil {
			return fmt.Errorf("ledger directory check failed: %w", err)
		}
	}
	for _, p := range cfg.Providers {
		if _, err := url.Parse(p.BaseURL); err != nil {
			return fmt.Errorf("provider %s: invalid base URL: %w", p.Name, err)
		}
		if xnet.IsPlainHTTP(p.BaseURL) {
			logger.Warn().
				Str("provider", p.Name).
				Str("base_url", xnet.SanitizeURL(p.BaseURL)).
				Msg("provider base URL is not TLS protected")
		}
	}

	logger.Info().Int("providers", len(cfg.Providers)).Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Debug().Str("addr", addr).Msg("listen address is valid")
	return nil
}

// checkDataDir creates path if needed and proves it is writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str("path", path).Msg("data directory is writable")
	return nil
}
