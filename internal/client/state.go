package client

import (
	"time"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
	"github.com/lumora-app/lumora-client/internal/retry"
)

// Phase is one node of the per-call state machine:
// Attempting → {Succeeded, Retrying → Attempting, Failed}.
type Phase int

const (
	PhaseAttempting Phase = iota
	PhaseRetrying
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseAttempting:
		return "attempting"
	case PhaseRetrying:
		return "retrying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// State tracks one logical call through the machine. Transitions are pure so
// the loop's decisions are testable without any I/O.
type State struct {
	Phase   Phase
	Attempt int // 1-based
	Delay   time.Duration
	Err     *apierr.APIError
}

// Start returns the initial state: first attempt pending.
func Start() State {
	return State{Phase: PhaseAttempting, Attempt: 1}
}

// Observe folds one attempt outcome into the machine. A nil error means the
// attempt succeeded; otherwise the policy decides between retrying and
// terminal failure.
func (s State) Observe(err *apierr.APIError, pol retry.Policy) State {
	if err == nil {
		return State{Phase: PhaseSucceeded, Attempt: s.Attempt}
	}
	if pol.ShouldRetry(err, s.Attempt) {
		return State{Phase: PhaseRetrying, Attempt: s.Attempt, Delay: pol.Delay(s.Attempt), Err: err}
	}
	return State{Phase: PhaseFailed, Attempt: s.Attempt, Err: err}
}

// Advance moves a retrying call to its next attempt.
func (s State) Advance() State {
	return State{Phase: PhaseAttempting, Attempt: s.Attempt + 1}
}
