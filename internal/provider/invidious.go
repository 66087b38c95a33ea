// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// invidiousVideo is the subset of GET /videos/{id} the adapter reads.
type invidiousVideo struct {
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Author          string               `json:"author"`
	AuthorID        string               `json:"authorId"`
	LengthSeconds   int64                `json:"lengthSeconds"`
	ViewCount       int64                `json:"viewCount"`
	VideoThumbnails []invidiousThumbnail `json:"videoThumbnails"`
	AdaptiveFormats []invidiousFormat    `json:"adaptiveFormats"`
	FormatStreams   []invidiousFormat    `json:"formatStreams"`
	Error           string               `json:"error"`
}

type invidiousThumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type invidiousFormat struct {
	URL           string  `json:"url"`
	Itag          string  `json:"itag"`
	Type          string  `json:"type"`
	Container     string  `json:"container"`
	Bitrate       flexInt `json:"bitrate"`
	ContentLength flexInt `json:"clen"`
	QualityLabel  string  `json:"qualityLabel"`
	Resolution    string  `json:"resolution"`
	Size          string  `json:"size"`
}

func (f invidiousFormat) isAudio() bool { return strings.HasPrefix(f.Type, "audio/") }
func (f invidiousFormat) isVideo() bool { return strings.HasPrefix(f.Type, "video/") }

func (f invidiousFormat) mimeType() string {
	if i := strings.IndexByte(f.Type, ';'); i >= 0 {
		return strings.TrimSpace(f.Type[:i])
	}
	return f.Type
}

func (f invidiousFormat) height() int {
	for _, label := range []string{f.Size, f.Resolution, f.QualityLabel} {
		if h := ParseHeight(label); h > 0 {
			return h
		}
	}
	return 0
}

func (f invidiousFormat) rendition() Rendition {
	return Rendition{Locator: f.URL, MimeType: f.mimeType(), Height: f.height(), Bitrate: int64(f.Bitrate)}
}

// Invidious talks to an Invidious API instance (base URL includes /api/v1).
type Invidious struct {
	httpBase
}

// NewInvidious returns an Invidious adapter.
func NewInvidious(opts Options) *Invidious {
	return &Invidious{httpBase: newHTTPBase(opts)}
}

func (v *Invidious) fetch(ctx context.Context, op, videoID string) (invidiousVideo, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	var body invidiousVideo
	if err := v.getJSON(ctx, op, v.baseURL+"/videos/"+url.PathEscape(videoID), &body); err != nil {
		return invidiousVideo{}, err
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return invidiousVideo{}, v.notFound(op, msg)
	}
	return body, nil
}

// Resolve implements Adapter.
func (v *Invidious) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "resolve"
	if err := v.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	body, err := v.fetch(ctx, op, req.VideoID)
	if err != nil {
		return media.ResolvedMedia{}, err
	}

	var audio, video []Rendition
	for _, f := range body.AdaptiveFormats {
		switch {
		case f.isAudio():
			audio = append(audio, f.rendition())
		case f.isVideo():
			video = append(video, f.rendition())
		}
	}
	// Muxed streams only stand in when no adaptive video is listed.
	if len(video) == 0 {
		for _, f := range body.FormatStreams {
			video = append(video, f.rendition())
		}
	}

	r, ok := Select(req, v.heights, audio, video)
	if !ok {
		return media.ResolvedMedia{}, v.notFound(op, "no "+string(req.Kind)+" formats listed")
	}
	return v.resolved(r), nil
}

// Describe implements Describer.
func (v *Invidious) Describe(ctx context.Context, videoID string) (media.VideoInfo, error) {
	const op = "describe"
	if err := v.validateID(op, videoID); err != nil {
		return media.VideoInfo{}, err
	}

	body, err := v.fetch(ctx, op, videoID)
	if err != nil {
		return media.VideoInfo{}, err
	}

	info := media.VideoInfo{
		VideoID:         videoID,
		Title:           body.Title,
		Author:          body.Author,
		Description:     body.Description,
		DurationSeconds: body.LengthSeconds,
		ViewCount:       body.ViewCount,
		SourceProvider:  v.name,
		FetchedAt:       time.Now().UTC(),
	}
	if body.AuthorID != "" {
		info.AuthorURL = "https://youtube.com/channel/" + body.AuthorID
	}
	if len(body.VideoThumbnails) > 0 {
		info.ThumbnailURL = body.VideoThumbnails[0].URL
	}
	for _, f := range body.AdaptiveFormats {
		info.Formats = append(info.Formats, media.Format{
			ID:       f.Itag,
			MimeType: f.mimeType(),
			Quality:  f.QualityLabel,
			Height:   f.height(),
			Bitrate:  int64(f.Bitrate),
			Size:     int64(f.ContentLength),
			Audio:    f.isAudio(),
			Video:    f.isVideo(),
		})
	}
	return info, nil
}
