package pipeline

import (
	"time"

	"github.com/hashicorp/go-multierror"

	ngerrors "github.com/neongoby/neongoby/pkg/shared/errors"
)

// State is a step of a pipeline run.
type State string

const (
	Instrumenting   State = "instrumenting"
	Executing       State = "executing"
	DiscoveringLogs State = "discovering-logs"
	Checking        State = "checking"
	Done            State = "done"

	InstrumentFailed  State = "instrument-failed"
	ExecutionTimedOut State = "execution-timed-out"
	NoLogsFound       State = "no-logs-found"
	CheckFailed       State = "check-failed"
)

var transitions = map[State][]State{
	"":                {Instrumenting},
	Instrumenting:     {Executing, InstrumentFailed},
	Executing:         {DiscoveringLogs, ExecutionTimedOut},
	ExecutionTimedOut: {DiscoveringLogs},
	DiscoveringLogs:   {Checking, NoLogsFound},
	Checking:          {Done, CheckFailed},
}

// CanTransition reports whether a run may move from one state to the next.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Failed reports whether s ends a run without a verdict.
func (s State) Failed() bool {
	switch s {
	case InstrumentFailed, NoLogsFound, CheckFailed:
		return true
	}
	return false
}

// Outcome is the verdict of a run.
type Outcome string

const (
	Sound           Outcome = "sound"
	ViolationsFound Outcome = "violations-found"
	ToolFailure     Outcome = "tool-failure"
)

// ExitCode maps the outcome to the process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case Sound:
		return ngerrors.ExitSound
	case ViolationsFound:
		return ngerrors.ExitViolationsFound
	default:
		return ngerrors.ExitToolFailure
	}
}

// Transition is one entry of a run history.
type Transition struct {
	State   State     `json:"state"`
	At      time.Time `json:"at"`
	Message string    `json:"message,omitempty"`
}

// Run is the record of one pipeline invocation. It is owned by a single goroutine.
type Run struct {
	Program    string        `json:"program"`
	CheckedAA  string        `json:"checked_aa"`
	BaselineAA string        `json:"baseline_aa"`
	LogDir     string        `json:"log_dir"`
	TimeLimit  time.Duration `json:"time_limit"`

	State   State        `json:"state"`
	History []Transition `json:"history"`

	Logs []string `json:"logs,omitempty"`
	// Incomplete is set when the instrumented program timed out or failed,
	// so its traces may be partial.
	Incomplete bool `json:"incomplete"`
	// Violations is the count reported by the checker, -1 when it could not be read.
	Violations int      `json:"violations"`
	Outcome    Outcome  `json:"outcome"`
	Warnings   []string `json:"warnings,omitempty"`
}

func newRun(opts Options) *Run {
	return &Run{
		Program:    opts.Program,
		CheckedAA:  opts.CheckedAA,
		BaselineAA: opts.BaselineAA,
		LogDir:     opts.LogDir,
		TimeLimit:  opts.TimeLimit,
		Outcome:    ToolFailure,
	}
}

// enter records a transition; the run is left unchanged when the table forbids it.
func (r *Run) enter(s State, message string) error {
	if !CanTransition(r.State, s) {
		return &TransitionError{From: r.State, To: s}
	}
	r.State = s
	r.History = append(r.History, Transition{State: s, At: time.Now(), Message: message})
	return nil
}

// fail enters a failure state and returns cause, joined with any transition error.
func (r *Run) fail(s State, message string, cause error) error {
	if err := r.enter(s, message); err != nil {
		return multierror.Append(cause, err)
	}
	return cause
}

func (r *Run) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

// States returns the visited states in order.
func (r *Run) States() []State {
	states := make([]State, 0, len(r.History))
	for _, t := range r.History {
		states = append(states, t.State)
	}
	return states
}
