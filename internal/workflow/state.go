package workflow

// State is a file's position in the pipeline.
type State string

const (
	StateDiscovered     State = "discovered"
	StateProbed         State = "probed"
	StatePolicyResolved State = "policy_resolved"
	StateDispatched     State = "dispatched"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

var nextStates = map[State][]State{
	StateDiscovered:     {StateProbed, StateFailed},
	StateProbed:         {StatePolicyResolved, StateFailed},
	StatePolicyResolved: {StateDispatched, StateFailed},
	StateDispatched:     {StateCompleted, StateFailed},
}

// CanTransition reports whether moving from one state to another is a
// forward edge of the pipeline.
func CanTransition(from, to State) bool {
	for _, candidate := range nextStates[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
