// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// Preflight checks that the service knows the video, then builds the
// locator from the base URL without a second round trip.
type Preflight struct {
	httpBase
}

// NewPreflight returns a Preflight adapter.
func NewPreflight(opts Options) *Preflight {
	return &Preflight{httpBase: newHTTPBase(opts)}
}

// Resolve implements Adapter.
func (p *Preflight) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "preflight"
	if err := p.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	check := p.baseURL + "?url=" + url.QueryEscape(media.WatchURL(req.VideoID))
	if err := p.getJSON(ctx, op, check, nil); err != nil {
		return media.ResolvedMedia{}, err
	}

	r := Rendition{Locator: p.baseURL + "/audio/" + url.PathEscape(req.VideoID), MimeType: "audio/mp4"}
	if req.Kind == media.KindVideo {
		r = Rendition{
			Locator:  p.baseURL + "/" + strconv.Itoa(p.heights.Height(req.Tier)) + "/" + url.PathEscape(req.VideoID),
			MimeType: "video/mp4",
		}
	}
	return p.resolved(r), nil
}
