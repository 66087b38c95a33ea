// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "time"

// ResolvedMedia is the canonical result of a successful resolution.
// It is built once by the adapter that produced it and never mutated.
type ResolvedMedia struct {
	Locator        string    `json:"locator"`
	MimeHint       string    `json:"mimeHint,omitempty"`
	SourceProvider string    `json:"sourceProvider"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}

// Valid reports whether the media carries a usable locator.
func (m ResolvedMedia) Valid() bool {
	return m.Locator != "" && m.SourceProvider != ""
}

// Format describes one rendition listed by a provider's metadata endpoint.
type Format struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Height   int    `json:"height,omitempty"`
	Bitrate  int64  `json:"bitrate,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Audio    bool   `json:"audio"`
	Video    bool   `json:"video"`
}

// VideoInfo is the normalized metadata answer of a provider.
type VideoInfo struct {
	VideoID         string    `json:"videoId"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	AuthorURL       string    `json:"authorUrl,omitempty"`
	Description     string    `json:"description,omitempty"`
	ThumbnailURL    string    `json:"thumbnail,omitempty"`
	DurationSeconds int64     `json:"duration"`
	ViewCount       int64     `json:"viewCount"`
	Formats         []Format  `json:"formats"`
	SourceProvider  string    `json:"sourceProvider"`
	FetchedAt       time.Time `json:"fetchedAt"`
}
