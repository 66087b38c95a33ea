// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/vidresolve/internal/config"
	"github.com/ManuGH/vidresolve/internal/domain/media"
)

const testVideoID = "dQw4w9WgXcQ"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func providerConfig(t *testing.T, baseURL string) string {
	return writeConfig(t, `
listen: "127.0.0.1:0"
resolver:
  retryBudget: 1
  backoffBase: 1ms
redis:
  password: hunter2
providers:
  - name: direct
    shape: direct
    baseUrl: `+baseURL+`
    timeout: 2s
    headers:
      Authorization: Bearer abc
`)
}

func TestResolveCLI_PrintsMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+testVideoID, r.URL.Path)
		_, _ = io.WriteString(w, `{"url":"https://cdn.example/a.m4a","mimeType":"audio/mp4"}`)
	}))
	defer srv.Close()
	path := providerConfig(t, srv.URL)

	var stdout, stderr bytes.Buffer
	code := runResolveCLI([]string{"-config", path, "https://youtu.be/" + testVideoID, "-kind", "audio"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var m media.ResolvedMedia
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &m))
	assert.Equal(t, "https://cdn.example/a.m4a", m.Locator)
	assert.Equal(t, "direct", m.SourceProvider)
}

func TestResolveCLI_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()
	path := providerConfig(t, srv.URL)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runResolveCLI(nil, &stdout, &stderr))

	stdout.Reset()
	assert.Equal(t, 1, runResolveCLI([]string{"-config", path, "not-an-id"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"invalid_request"`)

	stdout.Reset()
	assert.Equal(t, 1, runResolveCLI([]string{"-config", path, testVideoID}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"all_providers_exhausted"`)
	assert.NotContains(t, stdout.String(), "nope")
}

func TestConfigDump_RedactsAndReloads(t *testing.T) {
	path := providerConfig(t, "https://direct.example.com")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runConfig([]string{"dump", "-f", path}, &stdout, &stderr), stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "retryBudget: 1")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "Bearer abc")

	var fc config.FileConfig
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &fc))
	require.Len(t, fc.Providers, 1)
	assert.Equal(t, "2s", fc.Providers[0].Timeout)
	assert.Equal(t, "1ms", fc.Resolver.BackoffBase)

	dumped := writeConfig(t, out)
	reloaded, err := config.NewLoader(dumped, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Resolver.RetryBudget)
	assert.Equal(t, "direct", reloaded.Providers[0].Name)
}

func TestConfigValidate(t *testing.T) {
	var stdout, stderr bytes.Buffer
	good := providerConfig(t, "https://direct.example.com")
	assert.Equal(t, 0, runConfig([]string{"validate", "-f", good}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is valid")

	bad := writeConfig(t, "resolver:\n  backoffBase: soon\n")
	assert.Equal(t, 1, runConfig([]string{"validate", "--file", bad}, &stdout, &stderr))

	t.Setenv(envConfigPath, "")
	assert.Equal(t, 2, runConfig([]string{"validate"}, &stdout, &stderr))
	assert.Equal(t, 2, runConfig([]string{"frobnicate"}, &stdout, &stderr))
}

func TestHealthcheckCLI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"ready":false,"status":"unhealthy","checks":{"queue":{"status":"unhealthy","error":"dial tcp: refused"}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"healthy"}`)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runHealthcheckCLI([]string{"-mode", "live", "-url", srv.URL}, &stdout, &stderr))
	assert.Equal(t, 1, runHealthcheckCLI([]string{"-url", srv.URL + "/"}, &stdout, &stderr))
	assert.True(t, strings.Contains(stderr.String(), "queue: unhealthy"), stderr.String())
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/vidresolve.yaml")
	assert.Equal(t, "/explicit.yaml", resolveConfigPath(" /explicit.yaml "))
	assert.Equal(t, "/etc/vidresolve.yaml", resolveConfigPath(""))
}
