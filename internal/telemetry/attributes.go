// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Resolution attributes
	ResolveVideoIDKey  = "resolve.video_id"
	ResolveKindKey     = "resolve.kind"
	ResolveTierKey     = "resolve.tier"
	ResolveCacheKey    = "resolve.cache_key"
	ResolveCacheResult = "resolve.cache_result"
	ResolveResultKey   = "resolve.result"
	ResolveAttemptsKey = "resolve.attempts"

	// Provider attributes
	ProviderNameKey    = "provider.name"
	ProviderAttemptKey = "provider.attempt"
	ProviderOutcomeKey = "provider.outcome"

	// Job attributes
	JobIDKey     = "job.id"
	JobStatusKey = "job.status"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ResolveAttributes describes the request a resolution span serves.
func ResolveAttributes(videoID, kind, tier, cacheKey string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ResolveVideoIDKey, videoID),
		attribute.String(ResolveKindKey, kind),
		attribute.String(ResolveTierKey, tier),
		attribute.String(ResolveCacheKey, cacheKey),
	}
}

// AttemptAttributes describes one provider attempt.
func AttemptAttributes(provider string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ProviderNameKey, provider),
		attribute.Int(ProviderAttemptKey, attempt),
	}
}

// JobAttributes creates job-related span attributes.
func JobAttributes(jobID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(JobStatusKey, status),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// MarkError records err on span and flags the span as failed.
func MarkError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(ErrorAttributes(errorType)...)
	span.SetStatus(codes.Error, errorType)
}
