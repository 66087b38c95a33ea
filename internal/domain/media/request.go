// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media holds the resolution domain types shared by providers, the
// resolver, the result cache, the attempt ledger and the work queue.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks a request that no provider could ever satisfy.
var ErrInvalidRequest = errors.New("media: invalid resolution request")

// Kind is the requested media kind.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// QualityTier is the caller-requested coarse quality bucket.
type QualityTier string

const (
	TierLow    QualityTier = "low"
	TierMedium QualityTier = "medium"
	TierHigh   QualityTier = "high"
)

// DefaultTier applies when the caller does not name a tier.
const DefaultTier = TierMedium

// Tiers lists every tier in ascending order.
var Tiers = []QualityTier{TierLow, TierMedium, TierHigh}

// ParseKind parses a kind string. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindAudio:
		return KindAudio, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, s)
}

// ParseQualityTier parses a tier string; an empty string yields DefaultTier.
func ParseQualityTier(s string) (QualityTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTier, nil
	}
	switch QualityTier(s) {
	case TierLow, TierMedium, TierHigh:
		return QualityTier(s), nil
	}
	return "", fmt.Errorf("%w: unknown quality tier %q", ErrInvalidRequest, s)
}

// Request identifies one resolution. It is a value type and never mutated.
type Request struct {
	VideoID string      `json:"videoId"`
	Kind    Kind        `json:"kind"`
	Tier    QualityTier `json:"quality"`
}

// NewRequest parses and validates raw request parameters.
func NewRequest(videoID, kind, tier string) (Request, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Request{}, err
	}
	q, err := ParseQualityTier(tier)
	if err != nil {
		return Request{}, err
	}
	req := Request{VideoID: strings.TrimSpace(videoID), Kind: k, Tier: q}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate reports whether the request is well-formed. It never corrects input.
func (r Request) Validate() error {
	if r.VideoID == "" {
		return fmt.Errorf("%w: video id is required", ErrInvalidRequest)
	}
	if !ValidVideoID(r.VideoID) {
		return fmt.Errorf("%w: malformed video id %q", ErrInvalidRequest, r.VideoID)
	}
	if r.Kind != KindAudio && r.Kind != KindVideo {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	switch r.Tier {
	case TierLow, TierMedium, TierHigh:
	default:
		return fmt.Errorf("%w: unknown quality tier %q", ErrInvalidRequest, r.Tier)
	}
	return nil
}

// WithDefaults fills the tier when it was left empty.
func (r Request) WithDefaults() Request {
	if r.Tier == "" {
		r.Tier = DefaultTier
	}
	return r
}

// Key returns the composite cache key for the request.
func (r Request) Key() Key {
	return CacheKey(r.VideoID, r.Kind, r.Tier)
}

func (r Request) String() string {
	return fmt.Sprintf("%s/%s/%s", r.VideoID, r.Kind, r.Tier)
}

// Key is the composite identity (videoId, kind, qualityTier) used for caching
// and duplicate suppression.
type Key string

const keyPrefix = "resolve:"

// CacheKey hashes the composite identity into a fixed-length key.
func CacheKey(videoID string, kind Kind, tier QualityTier) Key {
	if tier == "" {
		tier = DefaultTier
	}
	sum := sha256.Sum256([]byte(videoID + "\x00" + string(kind) + "\x00" + string(tier)))
	return Key(keyPrefix + hex.EncodeToString(sum[:]))
}

func (k Key) String() string { return string(k) }
