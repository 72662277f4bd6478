// Package domain defines the deployment session: a user-scoped, time-boxed
// unit of proposed infrastructure change moving through a closed state machine.
package domain

// State is the lifecycle state of a deployment session.
type State string

const (
	StateDraft      State = "draft"
	StateValidating State = "validating"
	StatePlanning   State = "planning"
	StatePlanReady  State = "plan_ready"
	StateApproved   State = "approved"
	StateApplying   State = "applying"
	StateApplied    State = "applied"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
	StateExpired    State = "expired"
)

// transitions is the closed edge set of the session state machine. The happy
// path is draft → validating → planning → plan_ready → approved → applying →
// applied; failed/cancelled/expired are side exits from any non-terminal
// state, with applying exempt from cancel and expire.
var transitions = map[State][]State{
	StateDraft:      {StateValidating, StateFailed, StateCancelled, StateExpired},
	StateValidating: {StatePlanning, StateFailed, StateCancelled, StateExpired},
	StatePlanning:   {StatePlanReady, StateFailed, StateCancelled, StateExpired},
	StatePlanReady:  {StateValidating, StateApproved, StateFailed, StateCancelled, StateExpired},
	StateApproved:   {StateApplying, StateFailed, StateCancelled, StateExpired},
	StateApplying:   {StateApplied, StateFailed},
	StateApplied:    {},
	StateFailed:     {},
	StateCancelled:  {},
	StateExpired:    {},
}

// CanTransition reports whether the edge from → to exists in the state machine.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing edges.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}
