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

// pipedStreams is the subset of GET /streams/{id} the adapter reads.
type pipedStreams struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Uploader     string        `json:"uploader"`
	UploaderURL  string        `json:"uploaderUrl"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	Duration     int64         `json:"duration"`
	Views        int64         `json:"views"`
	Error        string        `json:"error"`
	Message      string        `json:"message"`
	VideoStreams []pipedStream `json:"videoStreams"`
	AudioStreams []pipedStream `json:"audioStreams"`
}

type pipedStream struct {
	URL           string  `json:"url"`
	Format        string  `json:"format"`
	Quality       string  `json:"quality"`
	MimeType      string  `json:"mimeType"`
	Codec         string  `json:"codec"`
	Itag          flexInt `json:"itag"`
	Height        int     `json:"height"`
	Bitrate       flexInt `json:"bitrate"`
	ContentLength flexInt `json:"contentLength"`
	VideoOnly     bool    `json:"videoOnly"`
}

func (s pipedStream) height() int {
	if s.Height > 0 {
		return s.Height
	}
	return ParseHeight(s.Quality)
}

func (s pipedStream) rendition() Rendition {
	return Rendition{Locator: s.URL, MimeType: s.MimeType, Height: s.height(), Bitrate: int64(s.Bitrate)}
}

// Piped talks to a Piped API instance.
type Piped struct {
	httpBase
}

// NewPiped returns a Piped adapter.
func NewPiped(opts Options) *Piped {
	return &Piped{httpBase: newHTTPBase(opts)}
}

func (p *Piped) fetch(ctx context.Context, op, videoID string) (pipedStreams, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var body pipedStreams
	if err := p.getJSON(ctx, op, p.baseURL+"/streams/"+url.PathEscape(videoID), &body); err != nil {
		return pipedStreams{}, err
	}
	if msg := strings.TrimSpace(body.Error); msg != "" {
		return pipedStreams{}, p.notFound(op, msg)
	}
	return body, nil
}

// Resolve implements Adapter.
func (p *Piped) Resolve(ctx context.Context, req media.Request) (media.ResolvedMedia, error) {
	const op = "resolve"
	if err := p.validate(op, req); err != nil {
		return media.ResolvedMedia{}, err
	}

	body, err := p.fetch(ctx, op, req.VideoID)
	if err != nil {
		return media.ResolvedMedia{}, err
	}

	audio := make([]Rendition, 0, len(body.AudioStreams))
	for _, s := range body.AudioStreams {
		audio = append(audio, s.rendition())
	}
	video := make([]Rendition, 0, len(body.VideoStreams))
	for _, s := range body.VideoStreams {
		video = append(video, s.rendition())
	}

	r, ok := Select(req, p.heights, audio, video)
	if !ok {
		return media.ResolvedMedia{}, p.notFound(op, "no "+string(req.Kind)+" streams listed")
	}
	return p.resolved(r), nil
}

// Describe implements Describer.
func (p *Piped) Describe(ctx context.Context, videoID string) (media.VideoInfo, error) {
	const op = "describe"
	if err := p.validateID(op, videoID); err != nil {
		return media.VideoInfo{}, err
	}

	body, err := p.fetch(ctx, op, videoID)
	if err != nil {
		return media.VideoInfo{}, err
	}

	info := media.VideoInfo{
		VideoID:         videoID,
		Title:           body.Title,
		Author:          body.Uploader,
		AuthorURL:       body.UploaderURL,
		Description:     body.Description,
		ThumbnailURL:    body.ThumbnailURL,
		DurationSeconds: body.Duration,
		ViewCount:       body.Views,
		SourceProvider:  p.name,
		FetchedAt:       time.Now().UTC(),
	}
	for _, s := range body.AudioStreams {
		info.Formats = append(info.Formats, s.format(true))
	}
	for _, s := range body.VideoStreams {
		info.Formats = append(info.Formats, s.format(false))
	}
	return info, nil
}

func (s pipedStream) format(audio bool) media.Format {
	return media.Format{
		ID:       s.Itag.String(),
		MimeType: s.MimeType,
		Quality:  s.Quality,
		Height:   s.height(),
		Bitrate:  int64(s.Bitrate),
		Size:     int64(s.ContentLength),
		Audio:    audio || !s.VideoOnly,
		Video:    !audio,
	}
}
