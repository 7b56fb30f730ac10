// Package retry provides the retry policies and backoff math for Lumora API calls.
package retry

import (
	"math"
	"math/rand"
	"time"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
)

// Default parameter values, applied by Normalize when a field is left zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy holds the attempt-count and delay parameters governing one logical
// call's resilience behavior.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	RetryableKinds map[apierr.Kind]bool
}

func defaultRetryableKinds() map[apierr.Kind]bool {
	return map[apierr.Kind]bool{
		apierr.KindNetworkUnreachable:  true,
		apierr.KindTimedOut:            true,
		apierr.KindUpstreamUnavailable: true,
		apierr.KindPersistenceFailure:  true,
		apierr.KindAuthUnavailable:     true,
		apierr.KindAuthQuotaExceeded:   true,
		apierr.KindRateLimited:         true,
		apierr.KindUnknown:             true,
	}
}

// Standard is the policy for ordinary reads.
func Standard() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		RetryableKinds: defaultRetryableKinds(),
	}
}

// Critical is the more patient policy for operations that block a
// user-visible workflow, such as credential verification and profile
// mutation.
func Critical() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      2 * time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2,
		RetryableKinds: defaultRetryableKinds(),
	}
}

// Advisory is the reduced policy for non-essential status checks.
func Advisory() Policy {
	return Policy{
		MaxAttempts:    2,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		RetryableKinds: defaultRetryableKinds(),
	}
}

// Normalize fills zero fields with defaults and enforces BaseDelay <= MaxDelay.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.BaseDelay > p.MaxDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	if p.RetryableKinds == nil {
		p.RetryableKinds = defaultRetryableKinds()
	}
	return p
}

// ShouldRetry reports whether another attempt is allowed after err failed
// attempt number attempt (1-based).
func (p Policy) ShouldRetry(err *apierr.APIError, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	return err.Retryable && p.RetryableKinds[err.Kind]
}

// Delay computes the backoff before the attempt following attempt (1-based):
// exponential growth capped at MaxDelay, plus uniform jitter in
// [0, 0.1×delay] so independent callers recovering from a shared outage do
// not retry in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	jitter := rand.Float64() * 0.1 * d
	return time.Duration(d + jitter)
}
