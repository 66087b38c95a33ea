// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package provider holds the adapters that turn one third-party provider's
// response into a ResolvedMedia or a typed failure.
//
// An adapter performs one logical network call per invocation, never retries
// and never outlives its configured timeout. Retry and fallback belong to the
// resolver.
package provider

import (
	"context"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// Adapter resolves one request against one provider.
type Adapter interface {
	Name() string
	Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error)
}

// Describer is implemented by adapters that can also return video metadata.
type Describer interface {
	Describe(ctx context.Context, videoID string) (media.VideoInfo, error)
}

// Shape names a provider wire format.
type Shape string

const (
	ShapePiped     Shape = "piped"
	ShapeInvidious Shape = "invidious"
	ShapeDirect    Shape = "direct"
	ShapePostJSON  Shape = "postjson"
	ShapePreflight Shape = "preflight"
	ShapeQueryJSON Shape = "queryjson"
)

