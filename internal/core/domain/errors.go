package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a vector whose dimensionality does not
	// match the index configuration. This is a configuration fault, never
	// silently padded or truncated.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexCorrupt indicates the persisted vector index and its metadata
	// file disagree (count mismatch or missing sibling file). Loading must
	// refuse rather than serve silently wrong results.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrNotConfigured indicates a required credential or endpoint is
	// missing. Fatal at construction time, never retried.
	ErrNotConfigured = errors.New("not configured")

	// ErrUnavailable indicates a transient provider failure (timeout, 5xx,
	// connection refused). Batch jobs retry these with backoff; the query
	// pipeline degrades instead.
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the source system rejected the request for
	// exceeding its rate limit. Retryable.
	ErrRateLimited = errors.New("rate limited")
)
