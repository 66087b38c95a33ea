// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/platform/httpx"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseBody = 4 << 20
)

// Options configures one HTTP adapter.
type Options struct {
	Name        string
	BaseURL     string
	Timeout     time.Duration
	Headers     map[string]string
	TierHeights TierHeights
	Client      *http.Client
}

// httpBase carries the plumbing shared by every HTTP adapter shape.
type httpBase struct {
	name    string
	baseURL string
	timeout time.Duration
	headers map[string]string
	heights TierHeights
	client  *http.Client
	log     zerolog.Logger
}

func newHTTPBase(opts Options) httpBase {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = httpx.NewClient(timeout)
	}
	return httpBase{
		name:    opts.Name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		headers: opts.Headers,
		heights: opts.TierHeights,
		client:  client,
		log:     xglog.WithComponent("provider").With().Str(xglog.FieldProvider, opts.Name).Logger(),
	}
}

func (b *httpBase) Name() string { return b.name }

// BaseURL returns the normalized base URL.
func (b *httpBase) BaseURL() string { return b.baseURL }

// Timeout returns the per-invocation timeout.
func (b *httpBase) Timeout() time.Duration { return b.timeout }

func (b *httpBase) validate(op string, req media.Request) error {
	if err := req.Validate(); err != nil {
		return Fail(b.name, op, KindInvalidRequest, 0, err)
	}
	return nil
}

func (b *httpBase) validateID(op, videoID string) error {
	if !media.ValidVideoID(videoID) {
		return Fail(b.name, op, KindInvalidRequest, 0, fmt.Errorf("malformed video id %q", videoID))
	}
	return nil
}

// getJSON issues a GET and decodes a 2xx JSON body into out.
func (b *httpBase) getJSON(ctx context.Context, op, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fail(b.name, op, KindInvalidRequest, 0, err)
	}
	return b.do(req, op, out)
}

// postJSON issues a POST with a JSON body and decodes a 2xx JSON body into out.
func (b *httpBase) postJSON(ctx context.Context, op, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return Fail(b.name, op, KindInvalidRequest, 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Fail(b.name, op, KindInvalidRequest, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, op, out)
}

func (b *httpBase) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return Fail(b.name, op, Classify(err), 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b.log.Debug().
		Str(xglog.FieldEvent, "provider.http").
		Str("op", op).
		Int(xglog.FieldStatus, resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("provider response")

	if kind, ok := statusKind(resp.StatusCode); !ok {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Fail(b.name, op, kind, resp.StatusCode, bodyError(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		kind := KindInvalidResponse
		// A body cut off by the deadline is a timeout, not a malformed answer.
		if req.Context().Err() != nil {
			kind = KindTimeout
		}
		return Fail(b.name, op, kind, resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

// statusKind maps an HTTP status to the failure taxonomy. ok is true for 2xx.
func statusKind(status int) (FailureKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", true
	case status == http.StatusNotFound, status == http.StatusGone:
		return KindNotFound, false
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return KindUnreachable, false
	default:
		return KindInvalidResponse, false
	}
}

func bodyError(snippet []byte) error {
	s := strings.TrimSpace(string(snippet))
	if s == "" {
		return nil
	}
	return fmt.Errorf("body: %s", s)
}

// withTimeout bounds one invocation by the adapter's timeout.
func (b *httpBase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// resolved builds the canonical result for a selected rendition.
func (b *httpBase) resolved(r Rendition) media.ResolvedMedia {
	return media.ResolvedMedia{
		Locator:        r.Locator,
		MimeHint:       r.MimeType,
		SourceProvider: b.name,
		ResolvedAt:     time.Now().UTC(),
	}
}

func (b *httpBase) notFound(op, reason string) error {
	return Fail(b.name, op, KindNotFound, 0, errors.New(reason))
}

// flexInt decodes a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n := json.Number(s)
	if i, err := n.Int64(); err == nil {
		*f = flexInt(i)
		return nil
	}
	fl, err := n.Float64()
	if err != nil {
		return fmt.Errorf("flexInt: %q is not numeric", s)
	}
	*f = flexInt(int64(fl))
	return nil
}

func (f flexInt) String() string {
	if f == 0 {
		return ""
	}
	return strconv.FormatInt(int64(f), 10)
}
