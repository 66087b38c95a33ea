// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/vidresolve/internal/domain/media"
	"github.com/ManuGH/vidresolve/internal/ledger"
	"github.com/ManuGH/vidresolve/internal/log"
)

const maxBodyBytes = 4 << 10

// ResolveResponse is the body of a successful synchronous resolution.
type ResolveResponse struct {
	Locator        string    `json:"locator"`
	MimeHint       string    `json:"mimeHint,omitempty"`
	SourceProvider string    `json:"sourceProvider"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	ctx := log.ContextWithCacheKey(r.Context(), req.Key().String())

	m, err := s.svc.Resolve(ctx, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Locator:        m.Locator,
		MimeHint:       m.MimeHint,
		SourceProvider: m.SourceProvider,
		ResolvedAt:     m.ResolvedAt,
	})
}

func (s *Server) handleResolveAsync(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeBadRequest(w, r, "request body must be a JSON object with videoId, kind and quality")
		return
	}
	req, err := parseRequest(body.VideoID, body.Kind, body.Quality)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	res, err := s.svc.EnqueueResolve(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleResolveStatus(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	entry, found, err := s.svc.PeekCached(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w, r, "no cached outcome for this request")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("videoId")
	if raw == "" {
		writeBadRequest(w, r, errMissingVideoID.Error())
		return
	}
	id, err := media.ParseVideoID(raw)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	info, err := s.svc.Describe(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type attemptsResponse struct {
	Key      media.Key              `json:"key,omitempty"`
	Attempts []ledger.AttemptRecord `json:"attempts"`
}

// handleAttempts lists ledger records for one request, or the most recent
// records across all requests when no videoId is given.
func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	var resp attemptsResponse
	if r.URL.Query().Get("videoId") == "" {
		resp.Attempts, err = s.svc.RecentAttempts(r.Context(), limit)
	} else {
		var req media.Request
		req, err = requestFromQuery(r)
		if err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}
		resp.Key = req.Key()
		resp.Attempts, err = s.svc.Attempts(r.Context(), req, limit)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if resp.Attempts == nil {
		resp.Attempts = []ledger.AttemptRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Diagnostics(r.Context()))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}
