// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldCacheKey  = "cache_key"
	FieldTraceID   = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Resolution fields
	FieldVideoID     = "video_id"
	FieldKind        = "kind"
	FieldTier        = "tier"
	FieldProvider    = "provider"
	FieldAttempt     = "attempt"
	FieldOutcome     = "outcome"
	FieldFailureKind = "failure_kind"
	FieldBackoff     = "backoff"

	// Network fields
	FieldBaseURL = "base_url"
	FieldStatus  = "status"
)
