// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/vidresolve/internal/api/problem"
	"github.com/ManuGH/vidresolve/internal/log"
	"github.com/ManuGH/vidresolve/internal/resolver"
	"github.com/ManuGH/vidresolve/internal/service"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string) {
	problem.Write(w, r, status, problemType, title, code, detail)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, "resolve/invalid_request", "Bad Request", "INVALID_REQUEST", detail)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", detail)
}

// writeServiceError maps a facade error onto a problem response. Provider
// causes are logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var rerr *resolver.ResolutionError
	switch {
	case errors.As(err, &rerr):
		ev := logger.Debug()
		if rerr.Kind == resolver.KindAllProvidersExhausted && !rerr.Cached {
			ev = logger.Warn()
		}
		ev.Str("event", "resolve.failed").
			Str("kind", string(rerr.Kind)).
			Bool("cached", rerr.Cached).
			AnErr("cause", rerr.Cause()).
			Msg("resolution failed")

		switch rerr.Kind {
		case resolver.KindInvalidRequest:
			writeBadRequest(w, r, rerr.Error())
		case resolver.KindTimeout:
			writeProblem(w, r, http.StatusGatewayTimeout, "resolve/timeout",
				"Gateway Timeout", "TIMEOUT", rerr.Error())
		default:
			writeProblem(w, r, http.StatusBadGateway, "resolve/exhausted",
				"Bad Gateway", "EXHAUSTED", rerr.Error())
		}
	case errors.Is(err, service.ErrQueueDisabled):
		writeProblem(w, r, http.StatusServiceUnavailable, "resolve/queue_disabled",
			"Service Unavailable", "QUEUE_DISABLED", "asynchronous resolution is not enabled")
	default:
		logger.Error().Err(err).Str("event", "api.internal_error").Msg("request failed")
		writeProblem(w, r, http.StatusInternalServerError, "system/internal",
			"Internal Server Error", "INTERNAL", "")
	}
}
