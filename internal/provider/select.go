// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"strconv"
	"strings"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// TierHeights maps a quality tier to its target video height.
type TierHeights map[media.QualityTier]int

// DefaultTierHeights applies to every tier a provider leaves unset.
var DefaultTierHeights = TierHeights{
	media.TierLow:    144,
	media.TierMedium: 480,
	media.TierHigh:   720,
}

// Height returns the target height for tier.
func (t TierHeights) Height(tier media.QualityTier) int {
	if h, ok := t[tier]; ok && h > 0 {
		return h
	}
	if tier == "" {
		tier = media.DefaultTier
	}
	return DefaultTierHeights[tier]
}

// Rendition is one candidate stream after an adapter has decoded its
// provider's wire shape.
type Rendition struct {
	Locator  string
	MimeType string
	Height   int
	Bitrate  int64
}

// SelectVideo returns the rendition whose height is closest to target.
// Ties go to the first listed. Renditions without a locator are skipped.
func SelectVideo(renditions []Rendition, target int) (Rendition, bool) {
	best := -1
	bestDist := 0
	for i, r := range renditions {
		if r.Locator == "" {
			continue
		}
		d := r.Height - target
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Rendition{}, false
	}
	return renditions[best], true
}

// SelectAudio returns the highest-bitrate rendition. Ties go to the first listed.
func SelectAudio(renditions []Rendition) (Rendition, bool) {
	best := -1
	for i, r := range renditions {
		if r.Locator == "" {
			continue
		}
		if best < 0 || r.Bitrate > renditions[best].Bitrate {
			best = i
		}
	}
	if best < 0 {
		return Rendition{}, false
	}
	return renditions[best], true
}

// Select picks a rendition for req. ok is false when nothing usable is listed.
func Select(req media.Request, heights TierHeights, audio, video []Rendition) (Rendition, bool) {
	if req.Kind == media.KindAudio {
		return SelectAudio(audio)
	}
	return SelectVideo(video, heights.Height(req.Tier))
}

// ParseHeight extracts a pixel height from labels like "720p60", "1080p",
// "1280x720" or "720". It returns 0 when no height is present.
func ParseHeight(label string) int {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return 0
	}
	if i := strings.IndexByte(label, 'x'); i > 0 {
		if h, err := strconv.Atoi(leadingDigits(label[i+1:])); err == nil {
			return h
		}
	}
	h, err := strconv.Atoi(leadingDigits(label))
	if err != nil {
		return 0
	}
	return h
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
