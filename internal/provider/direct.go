// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// locatorResponse is the single-locator answer of the direct, postjson and
// queryjson shapes.
type locatorResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Error    string `json:"error"`
}

// Direct talks to an extractor that returns one locator per id.
// It ignores kind and tier.
type Direct struct {
	httpBase
}

// NewDirect returns a Direct adapter.
func NewDirect(opts Options) *Direct {
	if opts.Headers == nil {
		opts.Headers = map[string]string{"Referer": "https://www.youtube.com/"}
	}
	return &Direct{httpBase: newHTTPBase(opts)}
}

// Resolve implements Adapter.
func (d *Direct) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "resolve"
	if err := d.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var body locatorResponse
	if err := d.getJSON(ctx, op, d.baseURL+"/"+url.PathEscape(req.VideoID), &body); err != nil {
		return media.ResolvedMedia{}, err
	}
	return d.locator(op, body)
}

func (b *httpBase) locator(op string, body locatorResponse) (media.ResolvedMedia, error) {
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return media.ResolvedMedia{}, b.notFound(op, msg)
	}
	loc := strings.TrimSpace(body.URL)
	if loc == "" {
		return media.ResolvedMedia{}, b.notFound(op, "empty locator")
	}
	if u, err := url.Parse(loc); err != nil || u.Scheme == "" || u.Host == "" {
		return media.ResolvedMedia{}, Fail(b.name, op, KindInvalidResponse, 0, fmt.Errorf("locator %q is not an absolute URL", loc))
	}
	return b.resolved(Rendition{Locator: loc, MimeType: body.MimeType}), nil
}
