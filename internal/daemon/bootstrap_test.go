// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/log"
)

const testVideoID = "dQw4w9WgXcQ"

type upstream struct {
	*httptest.Server
	hits atomic.Int64
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		_, _ = io.WriteString(w, `{"url":"https://cdn.example/`+testVideoID+`.mp4","mimeType":"video/mp4"}`)
	}))
	t.Cleanup(u.Close)
	return u
}

func testAppConfig(providerURL string) config.AppConfig {
	return config.AppConfig{
		Version:    "test",
		ListenAddr: "127.0.0.1:0",
		LogLevel:   "debug",
		Resolver: config.ResolverConfig{
			RetryBudget: 1,
			SuccessTTL:  time.Hour,
			FailureTTL:  time.Minute,
			Deadline:    5 * time.Second,
		},
		Breaker: config.BreakerConfig{Threshold: 5, ResetTimeout: time.Minute},
		Cache:   config.CacheConfig{Backend: config.BackendMemory, Shards: 4},
		Ledger:  config.LedgerConfig{Backend: config.BackendMemory, Capacity: 100},
		Queue: config.QueueConfig{
			Backend:   config.BackendMemory,
			Workers:   1,
			Capacity:  8,
			MarkerTTL: time.Minute,
		},
		API: config.APIConfig{ShutdownTimeout: 5 * time.Second},
		Providers: []config.ProviderSpec{{
			Name:     "direct",
			Shape:    config.ShapeDirect,
			BaseURL:  providerURL,
			Timeout:  2 * time.Second,
			Priority: 10,
		}},
	}
}

func buildRuntime(t *testing.T, cfg config.AppConfig) *Runtime {
	t.Helper()
	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestBuild_MemoryBackendsResolveEndToEnd(t *testing.T) {
	up := newUpstream(t)
	rt := buildRuntime(t, testAppConfig(up.URL))

	target := "/api/v1/resolve?videoId=" + testVideoID + "&kind=video"
	for i := 0; i < 2; i++ {
		w := get(t, rt.Handler, target)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "https://cdn.example/"+testVideoID+".mp4", body["locator"])
		assert.Equal(t, "direct", body["sourceProvider"])
	}
	assert.Equal(t, int64(1), up.hits.Load(), "second call is served from cache")

	w := get(t, rt.Handler, "/api/v1/attempts?videoId="+testVideoID+"&kind=video")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider":"direct"`)

	w = get(t, rt.Handler, "/api/v1/diagnostics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"memory"`)

	assert.Equal(t, http.StatusOK, get(t, rt.Handler, "/readyz").Code)
}

func TestBuild_PersistentBackends(t *testing.T) {
	up := newUpstream(t)
	dir := t.TempDir()
	cfg := testAppConfig(up.URL)
	cfg.Cache = config.CacheConfig{Backend: config.BackendBadger, BadgerPath: filepath.Join(dir, "cache")}
	cfg.Ledger = config.LedgerConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "ledger.db")}

	rt := buildRuntime(t, cfg)

	req := media.Request{VideoID: testVideoID, Kind: media.KindAudio, Tier: media.TierLow}
	_, err := rt.Service.Resolve(context.Background(), req)
	require.NoError(t, err)

	recs, err := rt.Ledger.ForKey(context.Background(), req.Key(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	entry, found, err := rt.Cache.Get(context.Background(), req.Key())
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Success())

	w := get(t, rt.Handler, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "ledger")
}

func TestBuild_RedisBackendsDrainQueue(t *testing.T) {
	up := newUpstream(t)
	mr := miniredis.RunT(t)
	cfg := testAppConfig(up.URL)
	cfg.Redis = config.RedisConfig{Addr: mr.Addr()}
	cfg.Cache.Backend = config.BackendRedis
	cfg.Queue.Backend = config.BackendRedis

	rt := buildRuntime(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Pool.Run(ctx) }()

	req := media.Request{VideoID: testVideoID, Kind: media.KindVideo, Tier: media.TierHigh}
	res, err := rt.Service.EnqueueResolve(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	require.Eventually(t, func() bool {
		_, found, err := rt.Service.PeekCached(ctx, req)
		return err == nil && found
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), up.hits.Load())
	assert.Equal(t, http.StatusOK, get(t, rt.Handler, "/readyz").Code)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testAppConfig("http://127.0.0.1:1")
	cfg.Cache.Backend = "nope"
	_, err := Build(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	cfg = testAppConfig("http://127.0.0.1:1")
	cfg.Providers[0].Shape = "carrier-pigeon"
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testAppConfig("http://127.0.0.1:1")
	cfg.Redis = config.RedisConfig{Addr: "127.0.0.1:1"}
	cfg.Queue.Backend = config.BackendRedis
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestApp_RunServesAndStops(t *testing.T) {
	up := newUpstream(t)
	dir := t.TempDir()
	cfg := testAppConfig(up.URL)
	cfg.Ledger = config.LedgerConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "ledger.db"), Retention: time.Hour}

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	mgr, err := NewManager(ServerConfigFrom(cfg), Deps{Logger: log.WithComponent("test"), APIHandler: rt.Handler})
	require.NoError(t, err)
	app := NewApp(log.WithComponent("test"), mgr, rt)
	require.NotNil(t, app.pruner, "sqlite ledger with retention is pruned")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	addr, err := mgr.(*manager).Addr(addrCtx)
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestServerConfigFrom(t *testing.T) {
	cfg := testAppConfig("")
	cfg.Resolver.Deadline = time.Minute
	sc := ServerConfigFrom(cfg)
	assert.Equal(t, 65*time.Second, sc.WriteTimeout)
	assert.Equal(t, 5*time.Second, sc.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1:0", sc.ListenAddr)
}
