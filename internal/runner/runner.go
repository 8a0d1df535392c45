package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/hashicorp/go-hclog"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	// Env entries are appended to the current environment.
	Env []string
	Dir string
	// Timeout bounds the wall-clock run time. Zero means no limit.
	Timeout time.Duration
}

// ParseCommand splits a shell-like command line into a Command.
func ParseCommand(line string, extra ...string) (Command, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("unable to parse command %q: %w", line, err)
	}
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	return Command{Name: parts[0], Args: append(parts[1:], extra...)}, nil
}

// SplitArgs splits a shell-like argument string. An empty string yields no arguments.
func SplitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("unable to parse arguments %q: %w", s, err)
	}
	return args, nil
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the observable outcome of a finished process.
type Result struct {
	ExitCode int
	TimedOut bool
	Output   string
	Duration time.Duration
}

// Runner starts external processes.
type Runner interface {
	// Run returns an error only when the process could not be started or ctx was cancelled.
	// A non-zero exit status or a timeout is reported in Result.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands on the host, streaming their output into the logger.
type Exec struct {
	logger hclog.Logger
	stdout io.Writer
}

// NewExec creates a runner that logs through logger.
func NewExec(logger hclog.Logger) *Exec {
	return &Exec{logger: logger}
}

// WithOutput additionally copies process output to w.
func (e *Exec) WithOutput(w io.Writer) *Exec {
	e.stdout = w
	return e
}

func (e *Exec) Run(ctx context.Context, c Command) (Result, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = 5 * time.Second
	e.logger.Debug("debug info", "cmd", cmd.Args, "env", c.Env, "dir", c.Dir)

	var stdBuffer bytes.Buffer
	writers := []io.Writer{e.logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
	}), &stdBuffer}
	if e.stdout != nil {
		writers = append(writers, e.stdout)
	}
	mw := io.MultiWriter(writers...)
	cmd.Stdout = mw
	cmd.Stderr = mw

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Output:   stdBuffer.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}
	if c.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("unable to start %s: %w", c.Name, err)
	}
	return res, nil
}
