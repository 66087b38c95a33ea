// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package service

import (
	"context"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	xglog "github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/provider"
	"github.com/ManuGH/vidresolve/internal/resolver"
)

func describerName(d provider.Describer) string {
	if n, ok := d.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

// Describe returns metadata from the first describing provider that answers.
// Providers are tried once each in priority order and nothing is cached.
func (s *Service) Describe(ctx context.Context, videoID string) (media.VideoInfo, error) {
	if !media.ValidVideoID(videoID) {
		return media.VideoInfo{}, &resolver.ResolutionError{Kind: resolver.KindInvalidRequest}
	}
	logger := xglog.WithContext(ctx, s.logger).With().Str(xglog.FieldVideoID, videoID).Logger()

	var causes []error
	for _, d := range s.describers {
		if ctx.Err() != nil {
			return media.VideoInfo{}, &resolver.ResolutionError{Kind: resolver.KindTimeout, Causes: causes}
		}
		info, err := d.Describe(ctx, videoID)
		if err == nil {
			return info, nil
		}
		kind := provider.Classify(err)
		logger.Debug().Err(err).
			Str(xglog.FieldProvider, describerName(d)).
			Str(xglog.FieldFailureKind, string(kind)).
			Msg("metadata lookup failed")
		if kind == provider.KindInvalidRequest {
			return media.VideoInfo{}, &resolver.ResolutionError{Kind: resolver.KindInvalidRequest, Causes: []error{err}}
		}
		causes = append(causes, err)
	}
	if ctx.Err() != nil {
		return media.VideoInfo{}, &resolver.ResolutionError{Kind: resolver.KindTimeout, Causes: causes}
	}
	logger.Info().Int("providers", len(s.describers)).Msg("no provider returned metadata")
	return media.VideoInfo{}, &resolver.ResolutionError{Kind: resolver.KindAllProvidersExhausted, Causes: causes}
}
