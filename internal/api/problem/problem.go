// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/vidresolve/internal/log"
)

const (
	HeaderRequestID  = "X-Request-ID"
	JSONKeyRequestID = "requestId"
	ContentType      = "application/problem+json"
)

// Problem is the response body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Write writes an RFC 7807 problem details response.
//
//   - type: canonical machine identifier (e.g. "resolve/exhausted")
//   - title: short human-readable label
//   - code: stable machine-readable short code (e.g. "EXHAUSTED")
//   - detail: explanation of this occurrence; never provider internals
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string) {
	p := Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Code:   code,
		Detail: detail,
	}
	if r != nil {
		p.Instance = r.URL.EscapedPath()
		p.RequestID = log.RequestIDFromContext(r.Context())
	}
	if p.RequestID == "" {
		p.RequestID = w.Header().Get(HeaderRequestID)
	}
	if p.RequestID != "" {
		w.Header().Set(HeaderRequestID, p.RequestID)
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}
