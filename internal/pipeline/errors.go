package pipeline

import "fmt"

// StageError is a failed external step.
type StageError struct {
	State    State
	Command  string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", e.State, e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %q exited with code %d", e.State, e.Command, e.ExitCode)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// TransitionError is a state change the transition table does not allow.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}
