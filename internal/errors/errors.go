// Package errors provides the canonical error model for calls to the Lumora API.
// Every raw failure signal (transport errors, failure status codes, identity
// provider sub-codes) is mapped to one APIError so call sites never inspect
// ad hoc shapes.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies one canonical failure mode. The enumeration is closed:
// Classify maps every raw signal to exactly one Kind.
type Kind string

const (
	// Credential lifecycle, never retryable.
	KindCredentialExpired Kind = "credential_expired"
	KindCredentialInvalid Kind = "credential_invalid"
	KindCredentialRevoked Kind = "credential_revoked"
	KindCredentialMissing Kind = "credential_missing"

	// Transport failures with no response.
	KindNetworkUnreachable Kind = "network_unreachable"
	KindTimedOut           Kind = "timed_out"

	// Backend failures.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindPersistenceFailure  Kind = "persistence_failure"

	// Identity provider failures proxied through by the backend.
	KindAuthUnavailable   Kind = "auth_unavailable"
	KindAuthMisconfigured Kind = "auth_misconfigured"
	KindAuthQuotaExceeded Kind = "auth_quota_exceeded"

	// Throttling.
	KindRateLimited Kind = "rate_limited"

	// Request-level rejections.
	KindBadRequest       Kind = "bad_request"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"

	// A success response whose payload could not be decoded.
	KindDecodeFailure Kind = "decode_failure"

	KindUnknown Kind = "unknown"
)

// Family groups kinds for metrics labels and reporting.
func (k Kind) Family() string {
	switch k {
	case KindCredentialExpired, KindCredentialInvalid, KindCredentialRevoked, KindCredentialMissing:
		return "credential"
	case KindNetworkUnreachable, KindTimedOut:
		return "transport"
	case KindUpstreamUnavailable, KindPersistenceFailure:
		return "upstream"
	case KindAuthUnavailable, KindAuthMisconfigured, KindAuthQuotaExceeded:
		return "identity"
	case KindRateLimited:
		return "throttle"
	case KindBadRequest, KindPermissionDenied, KindNotFound, KindConflict, KindDecodeFailure:
		return "client"
	default:
		return "unknown"
	}
}

// APIError is the canonical error every caller of the client receives. It
// carries display-ready copy and an ordered remediation list so call sites
// render it directly instead of re-deriving messaging.
type APIError struct {
	Kind        Kind
	RawMessage  string
	UserMessage string
	Retryable   bool
	RetryAfter  time.Duration // 0 when no hint applies
	Remediation []string
	Err         error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.RawMessage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.RawMessage)
}

func (e *APIError) Unwrap() error { return e.Err }

// New builds an APIError of the given kind with the fixed user-facing profile
// for that kind. raw is the underlying message, cause may be nil.
func New(kind Kind, raw string, cause error) *APIError {
	p, ok := profiles[kind]
	if !ok {
		p = profiles[KindUnknown]
	}
	return &APIError{
		Kind:        kind,
		RawMessage:  raw,
		UserMessage: p.userMessage,
		Retryable:   p.retryable,
		RetryAfter:  p.retryAfter,
		Remediation: dedupe(p.remediation),
		Err:         cause,
	}
}

// IsRetryable reports whether err is an APIError marked retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// KindOf extracts the canonical kind from err, or KindUnknown when err is not
// an APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
