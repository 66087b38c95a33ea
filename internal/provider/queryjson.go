// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"net/url"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// QueryJSON talks to a download service addressed entirely by query
// parameters: GET {base}?url=<watch URL>&format=<container>&quality=<tier>.
// The answer is a single locator.
type QueryJSON struct {
	httpBase
}

// NewQueryJSON returns a QueryJSON adapter.
func NewQueryJSON(opts Options) *QueryJSON {
	return &QueryJSON{httpBase: newHTTPBase(opts)}
}

func queryFormat(kind media.Kind) string {
	if kind == media.KindAudio {
		return "m4a"
	}
	return "mp4"
}

// Resolve implements Adapter.
func (q *QueryJSON) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "resolve"
	if err := q.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	params := url.Values{}
	params.Set("url", media.WatchURL(req.VideoID))
	params.Set("format", queryFormat(req.Kind))
	params.Set("quality", string(req.Tier))

	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var body locatorResponse
	if err := q.getJSON(ctx, op, q.baseURL+"?"+params.Encode(), &body); err != nil {
		return media.ResolvedMedia{}, err
	}
	return q.locator(op, body)
}
