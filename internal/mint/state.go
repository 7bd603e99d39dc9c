package mint

import "fmt"

// State is the lifecycle of one mint request. Confirmed, Rejected and Failed
// are outcomes: the controller records them and drops straight back to Idle.
type State int

const (
	StateIdle State = iota
	StateAwaitingSignature
	StateSubmitted
	StateConfirming
	StateConfirmed
	StateRejected
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateAwaitingSignature: "awaiting_signature",
	StateSubmitted:         "submitted",
	StateConfirming:        "confirming",
	StateConfirmed:         "confirmed",
	StateRejected:          "rejected",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InFlight reports whether a request holds the item.
func (s State) InFlight() bool {
	switch s {
	case StateAwaitingSignature, StateSubmitted, StateConfirming:
		return true
	}
	return false
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown mint state %q", text)
}
