// Package membership resolves which company the signed-in user acts for.
// Resolution is a small state machine: it starts UNRESOLVED, moves through
// RESOLVING while the backend is consulted, and lands on RESOLVED or, when
// the user picked a company by hand, OVERRIDDEN.
package membership

import "errors"

// State is the resolution state of the active membership.
type State string

const (
	StateUnresolved State = "UNRESOLVED"
	StateResolving  State = "RESOLVING"
	StateResolved   State = "RESOLVED"
	StateOverridden State = "OVERRIDDEN"
)

// ErrInvalidStateTransition is returned when a state transition is not allowed.
var ErrInvalidStateTransition = errors.New("invalid membership state transition")

// validTransitions defines allowed state transitions.
// Key is current state, value is list of allowed next states.
var validTransitions = map[State][]State{
	StateUnresolved: {StateResolving, StateOverridden},
	StateResolving:  {StateResolving, StateResolved, StateUnresolved, StateOverridden},
	StateResolved:   {StateResolving, StateOverridden, StateUnresolved},
	StateOverridden: {StateResolving, StateUnresolved},
}

// IsValid returns true if the state is a known resolution state.
func (s State) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if transition to the target state is allowed.
func (s State) CanTransitionTo(target State) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, next := range allowed {
		if next == target {
			return true
		}
	}
	return false
}

// Outcome is the result of a resolution pass.
type Outcome string

const (
	// OutcomeResolved means an active membership was found.
	OutcomeResolved Outcome = "RESOLVED"
	// OutcomeUnresolved means every attempt came back empty or failed.
	OutcomeUnresolved Outcome = "UNRESOLVED"
	// OutcomeTimedOut means the caller's context ended before resolution did.
	OutcomeTimedOut Outcome = "TIMED_OUT"
	// OutcomeOverridden means a manual override was in effect and the pass
	// was skipped to avoid clobbering it.
	OutcomeOverridden Outcome = "OVERRIDDEN"
)
