// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/vidresolve/internal/log"
)

func testServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 5 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func TestNewManager_ValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	_, err = NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), APIHandler: okHandler()})
	assert.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr, err := NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	var hookOrder []string
	var mu sync.Mutex
	for _, name := range []string{"first", "second"} {
		name := name
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			hookOrder = append(hookOrder, name)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	addr, err := mgr.(*manager).Addr(addrCtx)
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, hookOrder)
}

func TestManager_StartFailsOnBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testServerConfig()
	cfg.ListenAddr = ln.Addr().String()
	mgr, err := NewManager(cfg, Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	hookRan := false
	mgr.RegisterShutdownHook("cleanup", func(context.Context) error {
		hookRan = true
		return nil
	})

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
	assert.True(t, hookRan, "resources are released when the server cannot bind")
}

func TestManager_StartTwice(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	_, err = mgr.(*manager).Addr(addrCtx)
	require.NoError(t, err)

	assert.Error(t, mgr.Start(ctx))
	cancel()
	require.NoError(t, <-done)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	mgr, err := NewManager(testServerConfig(), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	boom := errors.New("boom")
	mgr.RegisterShutdownHook("broken", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = mgr.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// A second shutdown is a no-op.
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestPruneInterval(t *testing.T) {
	assert.Equal(t, minPruneInterval, pruneInterval(time.Minute))
	assert.Equal(t, 30*time.Minute, pruneInterval(5*time.Hour))
	assert.Equal(t, maxPruneInterval, pruneInterval(30*24*time.Hour))
}
