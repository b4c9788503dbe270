// Package outcome models the per-request processing result and owns the one
// policy that maps results to webhook HTTP responses.
//
// The upstream delivery system retries on non-2xx responses. Everything short
// of an internal fault therefore answers 200, with failures surfaced only in
// the response body and logs. Keeping that rule here, in one place, stops it
// from being re-implemented per branch.
package outcome

import "net/http"

// Kind classifies how a webhook request was handled.
type Kind int

const (
	// OK: the submission was relayed end to end.
	OK Kind = iota

	// SecretMismatch: a shared secret is configured and the request supplied
	// a different one. Ignored, never an error status.
	SecretMismatch

	// TestPayload: Typeform's integration test ping. Skipped before any
	// outbound call.
	TestPayload

	// NoEmail: the submission carried no usable email address.
	NoEmail

	// ProfileFailed: the remote profile identity could not be resolved, so
	// no event was dispatched.
	ProfileFailed

	// EventFailed: the final event send failed after retries.
	EventFailed

	// Internal: malformed request body or missing required configuration.
	// The only kind answered with a 5xx.
	Internal
)

// String returns the skip/error reason label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case SecretMismatch:
		return "secret_mismatch"
	case TestPayload:
		return "test_payload"
	case NoEmail:
		return "no_email"
	case ProfileFailed:
		return "profile_failed"
	case EventFailed:
		return "event_failed"
	case Internal:
		return "internal"
	}
	return "unknown"
}

// Result is the outcome of one webhook request.
type Result struct {
	Kind           Kind
	Note           string
	UpstreamStatus int
}

// Response is the JSON body returned to the webhook caller.
type Response struct {
	OK       bool   `json:"ok"`
	Note     string `json:"note,omitempty"`
	Upstream string `json:"upstream,omitempty"`
	Status   int    `json:"status,omitempty"`
}

// Respond maps the result to the external HTTP status and body.
func (r Result) Respond() (int, Response) {
	switch r.Kind {
	case OK:
		return http.StatusOK, Response{OK: true, Note: r.Note}
	case SecretMismatch, TestPayload, NoEmail:
		return http.StatusOK, Response{OK: true, Note: r.Note}
	case ProfileFailed:
		return http.StatusOK, Response{OK: false, Note: r.Note, Upstream: "klaviyo", Status: r.UpstreamStatus}
	case EventFailed:
		return http.StatusOK, Response{OK: false, Note: r.Note, Upstream: "klaviyo", Status: r.UpstreamStatus}
	case Internal:
		return http.StatusInternalServerError, Response{OK: false, Note: r.Note}
	}
	return http.StatusOK, Response{OK: true, Note: r.Note}
}

// Skipped reports whether the request terminated before any outbound call.
func (r Result) Skipped() bool {
	switch r.Kind {
	case SecretMismatch, TestPayload, NoEmail:
		return true
	}
	return false
}
