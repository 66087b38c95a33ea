// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/platform/httpx"
)

const testID = "dQw4w9WgXcQ"

func videoReq(tier media.QualityTier) media.Request {
	return media.Request{VideoID: testID, Kind: media.KindVideo, Tier: tier}
}

func audioReq() media.Request {
	return media.Request{VideoID: testID, Kind: media.KindAudio, Tier: media.TierMedium}
}

func opts(name, base string) Options {
	return Options{
		Name:        name,
		BaseURL:     base,
		Timeout:     2 * time.Second,
		TierHeights: DefaultTierHeights,
		Client:      httpx.NewClient(2 * time.Second),
	}
}

func jsonServer(t *testing.T, wantPath string, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantPath != "" {
			assert.Equal(t, wantPath, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var ignoreResolvedAt = cmpopts.IgnoreFields(media.ResolvedMedia{}, "ResolvedAt")

const pipedBody = `{
  "title": "Never Gonna Give You Up",
  "uploader": "Rick Astley",
  "uploaderUrl": "/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
  "thumbnailUrl": "https://img.example/t.jpg",
  "duration": 212,
  "views": 1000,
  "videoStreams": [
    {"url": "https://cdn.example/144", "quality": "144p", "mimeType": "video/mp4", "videoOnly": true},
    {"url": "https://cdn.example/360", "quality": "360p", "mimeType": "video/mp4", "height": 360},
    {"url": "https://cdn.example/480", "quality": "480p30", "mimeType": "video/webm"},
    {"url": "https://cdn.example/720", "quality": "720p60", "mimeType": "video/mp4"},
    {"url": "https://cdn.example/1080", "quality": "1080p", "mimeType": "video/mp4"}
  ],
  "audioStreams": [
    {"url": "https://cdn.example/a64", "bitrate": 64000, "mimeType": "audio/webm"},
    {"url": "https://cdn.example/a160", "bitrate": 160000, "mimeType": "audio/webm"},
    {"url": "https://cdn.example/a128", "bitrate": 128000, "mimeType": "audio/mp4"}
  ]
}`

func TestPiped_Resolve(t *testing.T) {
	srv := jsonServer(t, "/streams/"+testID, http.StatusOK, pipedBody)
	p := NewPiped(opts("piped-test", srv.URL))

	got, err := p.Resolve(context.Background(), videoReq(media.TierMedium))
	require.NoError(t, err)
	want := media.ResolvedMedia{Locator: "https://cdn.example/480", MimeHint: "video/webm", SourceProvider: "piped-test"}
	if diff := cmp.Diff(want, got, ignoreResolvedAt); diff != "" {
		t.Errorf("resolved media mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.ResolvedAt.IsZero())

	got, err = p.Resolve(context.Background(), audioReq())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a160", got.Locator)
}

func TestPiped_ErrorFieldIsNotFound(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{"error": "Video unavailable"}`)
	_, err := NewPiped(opts("piped-test", srv.URL)).Resolve(context.Background(), videoReq(media.TierLow))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPiped_EmptyStreamsIsNotFound(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{"videoStreams": [], "audioStreams": []}`)
	_, err := NewPiped(opts("piped-test", srv.URL)).Resolve(context.Background(), audioReq())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPiped_Describe(t *testing.T) {
	srv := jsonServer(t, "/streams/"+testID, http.StatusOK, pipedBody)
	info, err := NewPiped(opts("piped-test", srv.URL)).Describe(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", info.Title)
	assert.Equal(t, "Rick Astley", info.Author)
	assert.Equal(t, int64(212), info.DurationSeconds)
	assert.Len(t, info.Formats, 8)
	assert.Equal(t, "piped-test", info.SourceProvider)
}

const invidiousBody = `{
  "title": "Never Gonna Give You Up",
  "author": "Rick Astley",
  "authorId": "UCuAXFkgsw1L7xaCfnd5JJOw",
  "lengthSeconds": 212,
  "viewCount": 1000,
  "videoThumbnails": [{"quality": "maxres", "url": "https://img.example/max.jpg"}],
  "adaptiveFormats": [
    {"url": "https://cdn.example/v144", "itag": "160", "type": "video/mp4; codecs=\"avc1\"", "bitrate": "100000", "size": "256x144"},
    {"url": "https://cdn.example/v720", "itag": "136", "type": "video/mp4; codecs=\"avc1\"", "bitrate": 1500000, "resolution": "720p"},
    {"url": "https://cdn.example/v1080", "itag": "137", "type": "video/mp4", "bitrate": "3000000", "qualityLabel": "1080p60"},
    {"url": "https://cdn.example/a128", "itag": "140", "type": "audio/mp4; codecs=\"mp4a.40.2\"", "bitrate": "128000"},
    {"url": "https://cdn.example/a160", "itag": "251", "type": "audio/webm; codecs=\"opus\"", "bitrate": 160000}
  ]
}`

func TestInvidious_Resolve(t *testing.T) {
	srv := jsonServer(t, "/api/v1/videos/"+testID, http.StatusOK, invidiousBody)
	v := NewInvidious(opts("inv-test", srv.URL+"/api/v1"))

	got, err := v.Resolve(context.Background(), videoReq(media.TierHigh))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v720", got.Locator)
	assert.Equal(t, "video/mp4", got.MimeHint)

	got, err = v.Resolve(context.Background(), videoReq(media.TierLow))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v144", got.Locator)

	got, err = v.Resolve(context.Background(), audioReq())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a160", got.Locator)
	assert.Equal(t, "audio/webm", got.MimeHint)
}

func TestInvidious_FallsBackToMuxedStreams(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{
	  "adaptiveFormats": [{"url": "https://cdn.example/a", "type": "audio/mp4", "bitrate": 1}],
	  "formatStreams": [
	    {"url": "https://cdn.example/m360", "type": "video/mp4", "qualityLabel": "360p"},
	    {"url": "https://cdn.example/m720", "type": "video/mp4", "qualityLabel": "720p"}
	  ]
	}`)
	got, err := NewInvidious(opts("inv-test", srv.URL)).Resolve(context.Background(), videoReq(media.TierMedium))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/m360", got.Locator)
}

func TestInvidious_Describe(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, invidiousBody)
	info, err := NewInvidious(opts("inv-test", srv.URL)).Describe(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "https://youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw", info.AuthorURL)
	assert.Equal(t, "https://img.example/max.jpg", info.ThumbnailURL)
	require.Len(t, info.Formats, 5)
	assert.Equal(t, 144, info.Formats[0].Height)
	assert.True(t, info.Formats[3].Audio)
}

func TestDirect_Resolve(t *testing.T) {
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		assert.Equal(t, "/video/"+testID, r.URL.Path)
		_, _ = io.WriteString(w, `{"url": "https://cdn.example/direct.mp4", "mimeType": "video/mp4"}`)
	}))
	defer srv.Close()

	got, err := NewDirect(opts("direct", srv.URL+"/video")).Resolve(context.Background(), videoReq(media.TierMedium))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/direct.mp4", got.Locator)
	assert.Equal(t, "https://www.youtube.com/", referer)
}

func TestDirect_EmptyAndRelativeLocators(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{"url": ""}`)
	_, err := NewDirect(opts("direct", srv.URL)).Resolve(context.Background(), audioReq())
	assert.ErrorIs(t, err, ErrNotFound)

	srv = jsonServer(t, "", http.StatusOK, `{"url": "/relative.mp4"}`)
	_, err = NewDirect(opts("direct", srv.URL)).Resolve(context.Background(), audioReq())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPostJSON_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in postJSONRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, postJSONRequest{ID: testID, Quality: "720p", Format: "video"}, in)
		_, _ = io.WriteString(w, `{"url": "https://cdn.example/post.mp4"}`)
	}))
	defer srv.Close()

	got, err := NewPostJSON(opts("post", srv.URL)).Resolve(context.Background(), videoReq(media.TierHigh))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/post.mp4", got.Locator)
}

func TestQueryJSON_Resolve(t *testing.T) {
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/download", r.URL.Path)
		seen = append(seen, r.URL.Query())
		_, _ = io.WriteString(w, `{"url": "https://cdn.example/q.mp4"}`)
	}))
	defer srv.Close()

	q := NewQueryJSON(opts("query", srv.URL+"/download"))
	got, err := q.Resolve(context.Background(), videoReq(media.TierHigh))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/q.mp4", got.Locator)

	_, err = q.Resolve(context.Background(), audioReq())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, url.Values{
		"url":     {media.WatchURL(testID)},
		"format":  {"mp4"},
		"quality": {"high"},
	}, seen[0])
	assert.Equal(t, "m4a", seen[1].Get("format"))
}

func TestQueryJSON_ErrorFieldIsNotFound(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{"error": "video unavailable"}`)
	_, err := NewQueryJSON(opts("query", srv.URL)).Resolve(context.Background(), videoReq(media.TierLow))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreflight_Resolve(t *testing.T) {
	var checks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		assert.Equal(t, media.WatchURL(testID), r.URL.Query().Get("url"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPreflight(opts("pre", srv.URL))
	got, err := p.Resolve(context.Background(), videoReq(media.TierLow))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/144/"+testID, got.Locator)

	got, err = p.Resolve(context.Background(), audioReq())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/audio/"+testID, got.Locator)
	assert.Equal(t, int32(2), checks.Load())
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusGone, ErrNotFound},
		{http.StatusTooManyRequests, ErrUnreachable},
		{http.StatusRequestTimeout, ErrUnreachable},
		{http.StatusBadGateway, ErrUnreachable},
		{http.StatusForbidden, ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := jsonServer(t, "", tt.status, `{"message":"nope"}`)
			_, err := NewPiped(opts("piped-test", srv.URL)).Resolve(context.Background(), videoReq(media.TierMedium))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.Status)
		})
	}
}

func TestMalformedBodyIsInvalidResponse(t *testing.T) {
	srv := jsonServer(t, "", http.StatusOK, `{"videoStreams": "nope"`)
	_, err := NewPiped(opts("piped-test", srv.URL)).Resolve(context.Background(), videoReq(media.TierMedium))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAdapterTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	o := opts("slow", srv.URL)
	o.Timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := NewPiped(o).Resolve(context.Background(), videoReq(media.TierMedium))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second, "adapter must not block past its timeout")
}

func TestUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewInvidious(opts("gone", base)).Resolve(context.Background(), videoReq(media.TierMedium))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestInvalidRequestFailsFastWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	bad := media.Request{VideoID: "short", Kind: media.KindVideo, Tier: media.TierMedium}
	adapters := []Adapter{
		NewPiped(opts("a", srv.URL)),
		NewInvidious(opts("b", srv.URL)),
		NewDirect(opts("c", srv.URL)),
		NewPostJSON(opts("d", srv.URL)),
		NewPreflight(opts("e", srv.URL)),
		NewQueryJSON(opts("f", srv.URL)),
	}
	for _, a := range adapters {
		_, err := a.Resolve(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidRequest, a.Name())
	}
	_, err := NewPiped(opts("a", srv.URL)).Describe(context.Background(), "bad id")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, calls.Load())
}

func TestCustomHeadersAreSent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Api-Key")
		_, _ = io.WriteString(w, `{"url": "https://cdn.example/x"}`)
	}))
	defer srv.Close()

	o := opts("direct", srv.URL)
	o.Headers = map[string]string{"X-Api-Key": "secret"}
	_, err := NewDirect(o).Resolve(context.Background(), audioReq())
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}
