// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidresolve/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)

	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp = m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{name: "no checkers", wantReady: true, want: StatusHealthy},
		{name: "all healthy", checkers: []Checker{&mockChecker{"a", StatusHealthy}}, wantReady: true, want: StatusHealthy},
		{name: "degraded stays ready", checkers: []Checker{&mockChecker{"a", StatusHealthy}, &mockChecker{"b", StatusDegraded}}, wantReady: true, want: StatusDegraded},
		{name: "unhealthy wins", checkers: []Checker{&mockChecker{"a", StatusUnhealthy}, &mockChecker{"b", StatusDegraded}}, wantReady: false, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(NewPingChecker("ledger", true, func(context.Context) error { return errors.New("disk I/O error") }))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "disk I/O error", resp.Checks["ledger"].Error)
}

func TestManager_ServeHealthAlwaysOK(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(&mockChecker{name: "x", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_CheckTimeout(t *testing.T) {
	m := NewManager("test")
	m.timeout = 20 * time.Millisecond
	m.RegisterChecker(NewPingChecker("redis", false, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	resp := m.Ready(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, resp.Ready, "advisory store failure only degrades")
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestBreakerChecker(t *testing.T) {
	tests := []struct {
		states []string
		want   Status
	}{
		{states: nil, want: StatusUnhealthy},
		{states: []string{"closed", "half-open"}, want: StatusHealthy},
		{states: []string{"closed", "open"}, want: StatusDegraded},
		{states: []string{"open", "open"}, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		states := tt.states
		c := NewBreakerChecker(func() []string { return states })
		assert.Equal(t, "providers", c.Name())
		assert.Equal(t, tt.want, c.Check(context.Background()).Status, "%v", tt.states)
	}
}

func TestPerformStartupChecks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.AppConfig{
		ListenAddr: ":8088",
		Cache:      config.CacheConfig{Backend: config.BackendBadger, BadgerPath: filepath.Join(dir, "badger")},
		Ledger:     config.LedgerConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "ledger", "attempts.sqlite")},
		Providers:  []config.ProviderSpec{{Name: "p", BaseURL: "https://example.invalid"}},
	}
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	assert.DirExists(t, cfg.Cache.BadgerPath)
	assert.DirExists(t, filepath.Join(dir, "ledger"))

	bad := cfg
	bad.ListenAddr = "nonsense"
	assert.Error(t, PerformStartupChecks(context.Background(), bad))

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	bad = cfg
	bad.Cache.BadgerPath = file
	assert.Error(t, PerformStartupChecks(context.Background(), bad))
}
