// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/version"
)

func runConfigCLI(args []string) int {
	return runConfig(args, os.Stdout, os.Stderr)
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vidresolve config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  vidresolve config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidresolve config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := resolveConfigPath(file)
	if configPath == "" {
		fmt.Fprintf(stderr, "Error: --file is required (or set $%s)\n", envConfigPath)
		return 2
	}

	if _, err := config.NewLoader(configPath, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// in the file format, with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidresolve config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := resolveConfigPath(file)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	fileCfg := fileConfigFromAppConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	fallThrough := cfg.Resolver.FallThroughOnNotFound
	tracing := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate

	providers := make([]config.ProviderFile, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, config.ProviderFile{
			Name:          p.Name,
			Shape:         p.Shape,
			BaseURL:       p.BaseURL,
			Timeout:       durationString(p.Timeout),
			Priority:      p.Priority,
			TierHeights:   p.TierHeights,
			Headers:       p.Headers,
			RatePerSecond: p.RatePerSecond,
			Burst:         p.Burst,
		})
	}

	return config.FileConfig{
		Listen:   cfg.ListenAddr,
		LogLevel: cfg.LogLevel,
		Resolver: &config.ResolverFile{
			RetryBudget:           cfg.Resolver.RetryBudget,
			BackoffBase:           durationString(cfg.Resolver.BackoffBase),
			SuccessTTL:            durationString(cfg.Resolver.SuccessTTL),
			FailureTTL:            durationString(cfg.Resolver.FailureTTL),
			Deadline:              durationString(cfg.Resolver.Deadline),
			FallThroughOnNotFound: &fallThrough,
		},
		Breaker: &config.BreakerFile{
			Threshold:    cfg.Breaker.Threshold,
			ResetTimeout: durationString(cfg.Breaker.ResetTimeout),
		},
		Cache: &config.CacheFile{
			Backend:    cfg.Cache.Backend,
			Shards:     cfg.Cache.Shards,
			BadgerPath: cfg.Cache.BadgerPath,
		},
		Redis: &config.RedisFile{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Ledger: &config.LedgerFile{
			Backend:   cfg.Ledger.Backend,
			Path:      cfg.Ledger.Path,
			Capacity:  cfg.Ledger.Capacity,
			Retention: durationString(cfg.Ledger.Retention),
		},
		Queue: &config.QueueFile{
			Backend:   cfg.Queue.Backend,
			Workers:   cfg.Queue.Workers,
			Capacity:  cfg.Queue.Capacity,
			MarkerTTL: durationString(cfg.Queue.MarkerTTL),
		},
		Telemetry: &config.TelemetryFile{
			Enabled:      &tracing,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
		API: &config.APIFile{
			RateLimitPerMinute: cfg.API.RateLimitPerMinute,
			ShutdownTimeout:    durationString(cfg.API.ShutdownTimeout),
		},
		Providers: providers,
	}
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Redis != nil && cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
	for i := range cfg.Providers {
		for k := range cfg.Providers[i].Headers {
			if strings.EqualFold(k, "Authorization") || strings.Contains(strings.ToLower(k), "token") {
				cfg.Providers[i].Headers[k] = "***"
			}
		}
	}
}
