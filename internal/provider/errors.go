// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

var (
	// Sentinel errors for errors.Is checks at the adapter boundary.
	ErrTimeout         = errors.New("provider: request timed out")
	ErrUnreachable     = errors.New("provider: host unreachable or transport failure")
	ErrInvalidResponse = errors.New("provider: invalid response format or malformed data")
	ErrNotFound        = errors.New("provider: media not found")
	ErrInvalidRequest  = media.ErrInvalidRequest
)

// FailureKind is the adapter failure taxonomy.
type FailureKind string

const (
	KindTimeout         FailureKind = "timeout"
	KindUnreachable     FailureKind = "unreachable"
	KindInvalidResponse FailureKind = "invalid_response"
	KindNotFound        FailureKind = "not_found"
	KindInvalidRequest  FailureKind = "invalid_request"
)

// Retryable reports whether another attempt (same or next adapter) may succeed.
func (k FailureKind) Retryable() bool {
	return k != KindInvalidRequest && k != ""
}

// Sentinel returns the sentinel error for k.
func (k FailureKind) Sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindUnreachable:
		return ErrUnreachable
	case KindInvalidResponse:
		return ErrInvalidResponse
	case KindNotFound:
		return ErrNotFound
	case KindInvalidRequest:
		return ErrInvalidRequest
	}
	return ErrUnreachable
}

// Error is the rich adapter error. It unwraps to its kind's sentinel and to
// the lower-level cause.
type Error struct {
	Provider string
	Op       string
	Kind     FailureKind
	Status   int
	Err      error // lower-level cause (net.Error, json error, ...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Kind.Sentinel())
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Err}
}

// Cause returns the lower-level error, if any.
func (e *Error) Cause() error {
	return e.Err
}

// Fail builds an *Error for provider and op.
func Fail(provider, op string, kind FailureKind, status int, cause error) *Error {
	return &Error{Provider: provider, Op: op, Kind: kind, Status: status, Err: cause}
}

// Classify maps any error into the failure taxonomy. Already typed errors keep
// their kind; transport errors are inspected for deadlines and decoding faults.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidResponse):
		return KindInvalidResponse
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindInvalidResponse
	}

	return KindUnreachable
}

// Wrap classifies err and attaches provider context. Errors that already
// carry provider context are returned unchanged.
func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return Fail(provider, op, Classify(err), 0, err)
}
