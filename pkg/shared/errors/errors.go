package errors

import (
	"errors"
	"fmt"

	"github.com/neongoby/neongoby/pkg/shared"
)

// Process exit codes. Calling scripts branch on these, so they must stay distinct.
const (
	ExitSound           = 0
	ExitToolFailure     = 1
	ExitViolationsFound = 2
)

// CommandError represents an error that occurred during command execution and carries the process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      shared.GenericLaunchesResult
	Err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError instance wrapping err with the given exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Err:         err,
	}
}

// NewCommandErrorWithResult creates a CommandError carrying the launches of a batch.
func NewCommandErrorWithResult(launches shared.GenericLaunchesResult, err error, code int) *CommandError {
	cmdErr := NewCommandError(err, code)
	cmdErr.Result = launches
	return cmdErr
}

// NewViolationsError reports a run that completed correctly and found missing aliases.
// A negative count means the checker did not print one.
func NewViolationsError(count int) *CommandError {
	if count < 0 {
		return NewCommandError(fmt.Errorf("missing aliases detected"), ExitViolationsFound)
	}
	return NewCommandError(fmt.Errorf("detected %d missing aliases", count), ExitViolationsFound)
}

// ExitCodeFor maps an error returned by a command to the process exit code.
// Errors that do not carry a code are tool failures.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSound
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return ExitToolFailure
}
