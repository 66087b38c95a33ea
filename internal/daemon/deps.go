// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/config"
)

// ServerConfig holds the HTTP server settings of the manager.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// ServerConfigFrom derives server settings from the application config.
// WriteTimeout leaves room for a full resolution deadline.
func ServerConfigFrom(cfg config.AppConfig) ServerConfig {
	write := 30 * time.Second
	if cfg.Resolver.Deadline > 0 && cfg.Resolver.Deadline+5*time.Second > write {
		write = cfg.Resolver.Deadline + 5*time.Second
	}
	shutdown := cfg.API.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	return ServerConfig{
		ListenAddr:      cfg.ListenAddr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    write,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: shutdown,
	}
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the API server
	APIHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
