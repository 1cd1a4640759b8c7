// Package audit records one event per fetch attempt: allowed or refused,
// why, and how the exchange went. Events are the security review trail for
// the gateway, so refusals carry the classification that triggered them.
package audit

import (
	"time"
)

// Outcome constants for FetchEvent.Outcome.
const (
	OutcomeSuccess           = "success"
	OutcomeBlocked           = "blocked"
	OutcomeRebindingDetected = "rebinding_detected"
	OutcomeResolutionFailed  = "resolution_failed"
	OutcomeTLSFailed         = "tls_failed"
	OutcomeConnectFailed     = "connect_failed"
	OutcomeHTTPError         = "http_error"
	OutcomeInvalidParameter  = "invalid_parameter"
)

// FetchEvent contains all data for a single fetch attempt.
type FetchEvent struct {
	// Identifiers
	RequestID  string `json:"request_id"`
	URL        string `json:"url"`
	URLKey     string `json:"url_key"`
	InstanceID string `json:"instance_id,omitempty"`

	// Request metadata
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Raw       bool   `json:"raw,omitempty"`

	// Verdict
	Outcome        string `json:"outcome"`
	Classification string `json:"classification,omitempty"`

	// Response
	StatusCode int     `json:"status_code,omitempty"`
	BodyBytes  int64   `json:"body_bytes,omitempty"`
	Duration   float64 `json:"duration"` // seconds

	// Error info
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
