package shared

// stateSymbols is the fixed three-valued domain backing a State
// primitive: the classic circuit breaker's closed/open/half-open
// machine, shared across worker processes via a named segment.
var stateSymbols = []string{"closed", "open", "half_open"}

// State is a named, refcounted three-valued enum specialised for
// breaker state, with convenience predicates and named transitions.
type State struct {
	enum *Enum
}

// NewState creates or attaches to the named state segment, starting
// closed on first creation.
func NewState(name string) (*State, error) {
	e, err := NewEnum(name, stateSymbols, "closed")
	if err != nil {
		return nil, err
	}
	return &State{enum: e}, nil
}

// Value returns the current state symbol ("closed", "open", or
// "half_open"). Returns an error if the underlying segment holds a
// value outside that domain.
func (s *State) Value() (string, error) { return s.enum.Value() }

// Closed reports whether the current value is "closed".
func (s *State) Closed() bool { v, _ := s.enum.Value(); return v == "closed" }

// Open reports whether the current value is "open".
func (s *State) Open() bool { v, _ := s.enum.Value(); return v == "open" }

// HalfOpen reports whether the current value is "half_open".
func (s *State) HalfOpen() bool { v, _ := s.enum.Value(); return v == "half_open" }

// TransitionToOpen sets the value to "open".
func (s *State) TransitionToOpen() { _ = s.enum.Set("open") }

// TransitionToClosed sets the value to "closed".
func (s *State) TransitionToClosed() { _ = s.enum.Set("closed") }

// TransitionToHalfOpen sets the value to "half_open".
func (s *State) TransitionToHalfOpen() { _ = s.enum.Set("half_open") }

// Reset returns the state to closed, per the contract that any-state
// explicit reset lands in closed.
func (s *State) Reset() { s.enum.Reset() }

// Destroy releases this handle's refcount on the underlying segment.
func (s *State) Destroy() { s.enum.Destroy() }
