package klaviyo

import (
	"errors"
	"fmt"
)

// Package errors.
var (
	ErrMissingAPIKey     = errors.New("missing api key")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrMetricNotFound    = errors.New("metric not found")
	ErrUnknownRevision   = errors.New("unknown api revision")
	ErrMissingProfileRef = errors.New("event needs a profile reference")
)

// StatusError is a non-2xx answer from the remote API. Callers use the status
// to decide between retrying and surfacing the failure.
type StatusError struct {
	Status             int
	Detail             string
	DuplicateProfileID string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("klaviyo: status %d", e.Status)
	}
	return fmt.Sprintf("klaviyo: status %d: %s", e.Status, e.Detail)
}

// Retryable reports whether the failure is worth another attempt. Rate limits
// and server errors are transient; other client errors are not.
func (e *StatusError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// UpstreamStatus extracts the remote status code from err, or 0.
func UpstreamStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
