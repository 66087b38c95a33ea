// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseTransport(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	ht, ok := c.Transport.(*headerTransport)
	require.True(t, ok, "transport type = %T, want *headerTransport", c.Transport)
	tr, ok := ht.next.(*http.Transport)
	require.True(t, ok, "inner transport type = %T, want *http.Transport", ht.next)
	return tr
}

func TestNewClient_DefaultTimeoutAndTransport(t *testing.T) {
	client := NewClient(0)
	assert.Equal(t, defaultClientTimeout, client.Timeout)

	transport := baseTransport(t, client)
	assert.Equal(t, defaultMaxIdleConns, transport.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, defaultIdleConnTimeout, transport.IdleConnTimeout)
}

func TestNewClient_CapsDialAndHeaderTimeouts(t *testing.T) {
	transport := baseTransport(t, NewClient(30*time.Second))
	assert.Equal(t, defaultDialTimeout, transport.TLSHandshakeTimeout)
	assert.Equal(t, defaultResponseHeaderTimeout, transport.ResponseHeaderTimeout)
}

func TestNewClient_UsesShortTimeoutAsProvided(t *testing.T) {
	want := 1500 * time.Millisecond
	client := NewClient(want)
	transport := baseTransport(t, client)
	assert.Equal(t, want, client.Timeout)
	assert.Equal(t, want, transport.TLSHandshakeTimeout)
	assert.Equal(t, want, transport.ResponseHeaderTimeout)
}

func TestNewClient_DefaultUserAgent(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	client := NewClient(time.Second, WithUserAgent("vidresolve-test"))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	req, err = http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "explicit")
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, []string{"vidresolve-test", "explicit"}, got)
}

func TestNewClient_TracingWrapsTransport(t *testing.T) {
	client := NewClient(time.Second, WithTracing(true))
	_, isHeader := client.Transport.(*headerTransport)
	assert.False(t, isHeader, "tracing must wrap the header transport")
}
