// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"fmt"
	"net/url"
	"strings"
)

// VideoIDLength is the fixed length of a platform video id.
const VideoIDLength = 11

// ValidVideoID reports whether id is an 11-character token of [A-Za-z0-9_-].
func ValidVideoID(id string) bool {
	if len(id) != VideoIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// ParseVideoID accepts either a bare id or a watch, shorts, embed, live or
// youtu.be URL and returns the id. Malformed input is rejected, not repaired.
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if ValidVideoID(input) {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q is neither a video id nor a URL", ErrInvalidRequest, input)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segs) >= 2 {
			switch segs[0] {
			case "embed", "shorts", "v", "e", "live":
				candidate = segs[1]
			}
		}
	}

	if !ValidVideoID(candidate) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidRequest, input)
	}
	return candidate, nil
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
