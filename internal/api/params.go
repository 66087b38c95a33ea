// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

var errMissingVideoID = errors.New("videoId is required")

// requestBody is the JSON body of the async endpoint.
type requestBody struct {
	VideoID string `json:"videoId"`
	Kind    string `json:"kind"`
	Quality string `json:"quality"`
}

// parseRequest builds a request. videoID may be a bare id or a watch URL.
func parseRequest(videoID, kind, quality string) (media.Request, error) {
	if videoID == "" {
		return media.Request{}, errMissingVideoID
	}
	id, err := media.ParseVideoID(videoID)
	if err != nil {
		return media.Request{}, err
	}
	return media.NewRequest(id, kind, quality)
}

func requestFromQuery(r *http.Request) (media.Request, error) {
	q := r.URL.Query()
	return parseRequest(q.Get("videoId"), q.Get("kind"), q.Get("quality"))
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultAttemptLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if n > maxAttemptLimit {
		n = maxAttemptLimit
	}
	return n, nil
}
