package domain

// SessionState is the lifecycle state of one attempt.
type SessionState int

const (
	StateLoading SessionState = iota
	StateActive
	StateFinishing
	StateCompleted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateFinishing:
		return "finishing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// MarshalText renders the state by name in JSON payloads.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FinishTrigger names what asked the attempt to finish.
type FinishTrigger string

const (
	TriggerManual FinishTrigger = "manual"
	TriggerExpiry FinishTrigger = "expiry"
)
