package domain

// RunState is the lifecycle state of a run. The order is monotonic
// (planning → active → confirmed → shopping → completed) except for
// cancelled, which is reachable from every non-terminal state.
type RunState string

const (
	StatePlanning  RunState = "planning"
	StateActive    RunState = "active"
	StateConfirmed RunState = "confirmed"
	StateShopping  RunState = "shopping"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
)

// transitions is the closed set of legal edges.
var transitions = map[RunState][]RunState{
	StatePlanning:  {StateActive, StateConfirmed, StateCancelled},
	StateActive:    {StateConfirmed, StateCancelled},
	StateConfirmed: {StateShopping, StateCancelled},
	StateShopping:  {StateCompleted, StateCancelled},
	StateCompleted: {},
	StateCancelled: {},
}

func ParseRunState(s string) (RunState, bool) {
	st := RunState(s)
	_, ok := transitions[st]
	return st, ok
}

// CanTransition reports whether the edge s → to is legal.
func (s RunState) CanTransition(to RunState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal states are immutable; no action may touch the run afterward.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// AcceptsBids reports whether bids may be placed or retracted.
func (s RunState) AcceptsBids() bool {
	return s == StatePlanning || s == StateActive
}

// Adjusting reports whether bids may still be reduced within their
// server-computed range.
func (s RunState) Adjusting() bool {
	return s == StateConfirmed || s == StateShopping
}

// States returns every known state. Order follows the lifecycle.
func States() []RunState {
	return []RunState{StatePlanning, StateActive, StateConfirmed, StateShopping, StateCompleted, StateCancelled}
}
