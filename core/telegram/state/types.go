package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session is the state and typed data owned by one user.
type Session[D any] struct {
	State State
	Data  D
}

// Reset returns the session to idle and drops its data.
func (s *Session[D]) Reset() {
	var zero D
	s.State = StateIdle
	s.Data = zero
}
