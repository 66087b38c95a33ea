// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"strconv"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

type postJSONRequest struct {
	ID      string `json:"id"`
	Quality string `json:"quality"`
	Format  string `json:"format"`
}

// PostJSON talks to a service that accepts {id, quality, format} and
// answers with one locator.
type PostJSON struct {
	httpBase
}

// NewPostJSON returns a PostJSON adapter.
func NewPostJSON(opts Options) *PostJSON {
	return &PostJSON{httpBase: newHTTPBase(opts)}
}

// Resolve implements Adapter.
func (p *PostJSON) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "resolve"
	if err := p.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	in := postJSONRequest{
		ID:      req.VideoID,
		Quality: strconv.Itoa(p.heights.Height(req.Tier)) + "p",
		Format:  string(req.Kind),
	}
	var body locatorResponse
	if err := p.postJSON(ctx, op, p.baseURL, in, &body); err != nil {
		return media.ResolvedMedia{}, err
	}
	return p.locator(op, body)
}
