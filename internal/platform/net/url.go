// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net holds URL helpers shared by outbound clients and diagnostics.
package net

import (
	"net/url"
)

// SanitizeURL removes user info and query parameters so provider endpoints
// can be logged and reported without leaking credentials.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	parsedURL.Fragment = ""
	return parsedURL.String()
}

// IsPlainHTTP reports whether rawURL uses the unencrypted http scheme.
func IsPlainHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "http"
}
