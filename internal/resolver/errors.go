// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"errors"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

var (
	ErrInvalidRequest        = errors.New("resolver: invalid request")
	ErrAllProvidersExhausted = errors.New("resolver: all providers exhausted")
	ErrTimeout               = errors.New("resolver: resolution timed out")
)

// ErrorKind classifies a failed resolution as the caller sees it.
type ErrorKind string

const (
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindAllProvidersExhausted ErrorKind = "all_providers_exhausted"
	KindTimeout               ErrorKind = "timeout"
)

// ResolutionError is the single error a caller gets back from a failed
// resolution. Causes carries the last adapter error per provider and is meant
// for logs, never for responses.
type ResolutionError struct {
	Kind   ErrorKind
	Key    media.Key
	Causes []error
	// Cached is set when the error was replayed from a negative cache entry.
	Cached bool
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case KindInvalidRequest:
		return "invalid resolution request"
	case KindTimeout:
		return "resolution timed out"
	default:
		return "no provider could resolve the media"
	}
}

// Is matches the kind sentinels.
func (e *ResolutionError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	case ErrAllProvidersExhausted:
		return e.Kind == KindAllProvidersExhausted
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// Cause joins the per-provider causes for logging.
func (e *ResolutionError) Cause() error {
	return errors.Join(e.Causes...)
}

func newError(kind ErrorKind, key media.Key, causes ...error) *ResolutionError {
	return &ResolutionError{Kind: kind, Key: key, Causes: causes}
}
