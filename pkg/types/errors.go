package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable wire-level error code surfaced to callers.
// The taxonomy below maps many failure kinds onto two codes: parameter
// problems the caller can fix, and everything else.
type ErrorCode string

const (
	CodeInvalidParameter ErrorCode = "invalid-parameter"
	CodeInternalError    ErrorCode = "internal-error"
)

// ErrorKind identifies the precise failure class for logs and audit events.
// Blocked and RebindingDetected are deliberately distinct: the caller remedy
// is identical but operators need to tell a pre-flight block apart from a
// connect-time DNS flip.
type ErrorKind string

const (
	KindInvalidParameter      ErrorKind = "invalid_parameter"
	KindBlocked               ErrorKind = "blocked"
	KindResolutionFailed      ErrorKind = "resolution_failed"
	KindRebindingDetected     ErrorKind = "rebinding_detected"
	KindTLSVerificationFailed ErrorKind = "tls_verification_failed"
	KindConnectFailed         ErrorKind = "connect_failed"
	KindHTTPStatusFailed      ErrorKind = "http_status_failed"
)

// FetchError is the typed error returned across the fetch pipeline.
type FetchError struct {
	Code    ErrorCode
	Kind    ErrorKind
	Message string
	Err     error // underlying cause, may be nil
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewInvalidParameter creates a caller-fixable error (malformed URL,
// disallowed scheme, missing hostname, out-of-range parameter).
func NewInvalidParameter(format string, args ...interface{}) *FetchError {
	return &FetchError{
		Code:    CodeInvalidParameter,
		Kind:    KindInvalidParameter,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewFetchError creates an internal-error with the given kind.
func NewFetchError(kind ErrorKind, format string, args ...interface{}) *FetchError {
	return &FetchError{
		Code:    CodeInternalError,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapFetchError wraps an underlying error with a kind and message.
func WrapFetchError(kind ErrorKind, err error, format string, args ...interface{}) *FetchError {
	return &FetchError{
		Code:    CodeInternalError,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// AsFetchError extracts a *FetchError from an error chain.
// Returns nil if the chain contains none.
func AsFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// KindOf returns the error kind of err, or empty string for untyped errors.
func KindOf(err error) ErrorKind {
	if fe := AsFetchError(err); fe != nil {
		return fe.Kind
	}
	return ""
}
