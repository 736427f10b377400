// Package submit sends encoded images to the relay and tracks the state of
// the current submission.
package submit

import (
	"errors"
	"fmt"
)

// Phase is the lifecycle position of a submission.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePending:
		return "Pending"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// State is the single live submission state. Text is set only when
// Succeeded and Reason only when Failed.
type State struct {
	Phase  Phase
	Text   string
	Reason string
}

// Terminal reports whether the state is Succeeded or Failed.
func (s State) Terminal() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

func (s State) String() string {
	switch s.Phase {
	case PhaseSucceeded:
		return fmt.Sprintf("Succeeded(%q)", s.Text)
	case PhaseFailed:
		return fmt.Sprintf("Failed(%q)", s.Reason)
	default:
		return s.Phase.String()
	}
}

// ProcessResponse is the relay's JSON reply.
type ProcessResponse struct {
	Result *string `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ErrBusy is returned when a submission is started while another is pending.
var ErrBusy = errors.New("submit: a submission is already pending")

// ErrCancelled is the reason recorded when a task is cancelled.
var ErrCancelled = errors.New("submission cancelled")

// TransportError covers network failures, timeouts, non-2xx replies and
// malformed reply bodies.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("relay responded %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("relay responded %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("relay request failed: %v", e.Err)
	default:
		return "relay request failed"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
