package orchestrator

import "errors"

// ErrInvalidTransition is returned by Start and Stop when the current state does not allow the call.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the lifecycle state of an Orchestrator
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAwaitingNextCycle
	StateStopped
	StateHaltedOnFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingNextCycle:
		return "awaiting_next_cycle"
	case StateStopped:
		return "stopped"
	case StateHaltedOnFailure:
		return "halted_on_failure"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further cycle can run from s
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateHaltedOnFailure
}

// MarshalText renders the state by name in JSON status payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
