package errors

import (
	"fmt"
	"strings"
	"time"
)

// Failure is the sealed set of raw signals one attempt can produce. Keeping
// the union closed means Classify handles every shape the transport boundary
// can hand us.
type Failure interface {
	failure()
}

// TransportFailure is an attempt that produced no response at all.
type TransportFailure struct {
	// TimedOut distinguishes an attempt aborted by its deadline from one that
	// never established a connection.
	TimedOut bool
	Err      error
}

// StatusResponse is a response carrying a failure status code, plus the
// backend's structured payload fields when one was present.
type StatusResponse struct {
	Status  int
	Message string
	// Code is the provider-specific sub-code proxied through by the backend
	// (the identity provider's auth/... family). Empty when absent.
	Code string
}

// ProviderFault is a failure reported by the identity provider outside an
// HTTP status, carrying only its sub-code.
type ProviderFault struct {
	Code    string
	Message string
}

func (TransportFailure) failure() {}
func (StatusResponse) failure()   {}
func (ProviderFault) failure()    {}

// profile is the fixed user-facing shape of one kind. Classification picks a
// kind; everything user-visible follows from this table, which keeps Classify
// pure and its output identical for identical input.
type profile struct {
	retryable   bool
	retryAfter  time.Duration
	userMessage string
	remediation []string
}

const remediationSignIn = "Sign in again to refresh your session."

var profiles = map[Kind]profile{
	KindCredentialExpired: {
		userMessage: "Your session has expired.",
		remediation: []string{remediationSignIn},
	},
	KindCredentialInvalid: {
		userMessage: "We couldn't verify your session.",
		remediation: []string{remediationSignIn, "If the problem persists, sign out completely and sign back in."},
	},
	KindCredentialRevoked: {
		userMessage: "Your session was signed out on another device.",
		remediation: []string{remediationSignIn},
	},
	KindCredentialMissing: {
		userMessage: "You're not signed in.",
		remediation: []string{remediationSignIn},
	},
	KindNetworkUnreachable: {
		retryable:   true,
		retryAfter:  5 * time.Second,
		userMessage: "We couldn't reach Lumora. Check your connection.",
		remediation: []string{"Check your internet connection.", "Try again in a few seconds."},
	},
	KindTimedOut: {
		retryable:   true,
		retryAfter:  10 * time.Second,
		userMessage: "The request took too long.",
		remediation: []string{"Try again in a few seconds.", "Check your internet connection."},
	},
	KindUpstreamUnavailable: {
		retryable:   true,
		retryAfter:  30 * time.Second,
		userMessage: "Lumora is having a moment. Please try again shortly.",
		remediation: []string{"Wait a minute and try again."},
	},
	KindPersistenceFailure: {
		retryable:   true,
		retryAfter:  30 * time.Second,
		userMessage: "We couldn't save your data just now.",
		remediation: []string{"Wait a minute and try again.", "Your recent changes may need to be re-entered."},
	},
	KindAuthUnavailable: {
		retryable:   true,
		retryAfter:  60 * time.Second,
		userMessage: "Sign-in services are temporarily unavailable.",
		remediation: []string{"Wait a minute and try again."},
	},
	KindAuthMisconfigured: {
		userMessage: "Something is wrong on our side. Please contact support.",
		remediation: []string{"Contact support if this keeps happening."},
	},
	KindAuthQuotaExceeded: {
		retryable:   true,
		retryAfter:  5 * time.Minute,
		userMessage: "We're experiencing high demand. Please try again later.",
		remediation: []string{"Wait a few minutes and try again."},
	},
	KindRateLimited: {
		retryable:   true,
		retryAfter:  60 * time.Second,
		userMessage: "You're going a little fast. Please slow down.",
		remediation: []string{"Wait a minute before trying again."},
	},
	KindBadRequest: {
		userMessage: "That request couldn't be processed.",
		remediation: []string{"Check your input and try again."},
	},
	KindPermissionDenied: {
		userMessage: "You don't have access to that.",
		remediation: []string{"Contact support if you believe this is a mistake."},
	},
	KindNotFound: {
		userMessage: "We couldn't find what you were looking for.",
		remediation: []string{"Refresh and try again."},
	},
	KindConflict: {
		userMessage: "That change conflicts with a more recent one.",
		remediation: []string{"Refresh and try again."},
	},
	KindDecodeFailure: {
		userMessage: "We received an unexpected response. Please try again.",
		remediation: []string{"Try again.", "Contact support if this keeps happening."},
	},
	KindUnknown: {
		retryable:   true,
		retryAfter:  30 * time.Second,
		userMessage: "Something went wrong. Please try again.",
		remediation: []string{"Try again.", "Contact support if this keeps happening."},
	},
}

// providerKinds maps identity provider sub-codes to canonical kinds.
var providerKinds = map[string]Kind{
	"auth/id-token-expired":        KindCredentialExpired,
	"auth/session-cookie-expired":  KindCredentialExpired,
	"auth/id-token-revoked":        KindCredentialRevoked,
	"auth/session-cookie-revoked":  KindCredentialRevoked,
	"auth/invalid-id-token":        KindCredentialInvalid,
	"auth/invalid-credential":      KindCredentialInvalid,
	"auth/argument-error":          KindCredentialInvalid,
	"auth/missing-token":           KindCredentialMissing,
	"auth/project-not-found":       KindAuthMisconfigured,
	"auth/invalid-api-key":         KindAuthMisconfigured,
	"auth/insufficient-permission": KindAuthMisconfigured,
	"auth/quota-exceeded":          KindAuthQuotaExceeded,
	"auth/too-many-requests":       KindAuthQuotaExceeded,
	"auth/internal-error":          KindAuthUnavailable,
	"auth/network-request-failed":  KindAuthUnavailable,
}

// Classify maps one raw failure signal to its canonical error. It is total
// and pure: it never returns nil, performs no I/O, and identical input always
// yields an identical APIError.
func Classify(f Failure) *APIError {
	switch v := f.(type) {
	case TransportFailure:
		if v.TimedOut {
			return New(KindTimedOut, "request aborted by attempt deadline", v.Err)
		}
		return New(KindNetworkUnreachable, "no connection to the Lumora API", v.Err)
	case StatusResponse:
		return classifyStatus(v)
	case ProviderFault:
		if kind, ok := providerKinds[v.Code]; ok {
			return New(kind, providerRaw(v.Code, v.Message), nil)
		}
		return New(KindUnknown, providerRaw(v.Code, v.Message), nil)
	default:
		return New(KindUnknown, "unclassifiable failure signal", nil)
	}
}

func classifyStatus(r StatusResponse) *APIError {
	raw := r.Message
	if raw == "" {
		raw = fmt.Sprintf("status %d", r.Status)
	}

	switch {
	case r.Status == 401 && mentionsExpiry(r.Message):
		return New(KindCredentialExpired, raw, nil)
	case r.Status == 401:
		return New(KindCredentialInvalid, raw, nil)
	case r.Status == 429:
		return New(KindRateLimited, raw, nil)
	case r.Status == 500 && mentionsPersistence(r.Message):
		return New(KindPersistenceFailure, raw, nil)
	case r.Status == 500 || r.Status == 502 || r.Status == 503 || r.Status == 504:
		e := New(KindUpstreamUnavailable, raw, nil)
		// 503/504 signal a longer outage than a one-off 500/502.
		if r.Status == 503 || r.Status == 504 {
			e.RetryAfter = 60 * time.Second
		}
		return e
	}

	if kind, ok := providerKinds[r.Code]; ok {
		return New(kind, raw, nil)
	}

	switch r.Status {
	case 400:
		return New(KindBadRequest, raw, nil)
	case 403:
		return New(KindPermissionDenied, raw, nil)
	case 404:
		return New(KindNotFound, raw, nil)
	case 409:
		return New(KindConflict, raw, nil)
	}

	return New(KindUnknown, raw, nil)
}

func providerRaw(code, message string) string {
	if message == "" {
		return code
	}
	return code + ": " + message
}

func mentionsExpiry(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "expired") || strings.Contains(m, "expiry")
}

func mentionsPersistence(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "database") || strings.Contains(m, "persistence") || strings.Contains(m, "storage")
}

func dedupe(steps []string) []string {
	seen := make(map[string]bool, len(steps))
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
