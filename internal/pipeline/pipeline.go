package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/neongoby/neongoby/internal/discovery"
	"github.com/neongoby/neongoby/internal/runner"
	"github.com/neongoby/neongoby/pkg/shared/config"
)

// LogDirEnv is read by the instrumented program to place its trace logs.
const LogDirEnv = "LOG_DIR"

var detectedRegexp = regexp.MustCompile(`Detected (\d+) missing alias`)

// Orchestrator drives instrument, execute, discover and check for one program at a time.
type Orchestrator struct {
	cfg    *config.Config
	runner runner.Runner
	fs     afero.Fs
	logger hclog.Logger
}

func NewOrchestrator(cfg *config.Config, r runner.Runner, fs afero.Fs, logger hclog.Logger) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Orchestrator{cfg: cfg, runner: r, fs: fs, logger: logger}
}

// Run executes the whole pipeline. The returned error is nil when the checker produced
// a verdict, sound or not; Run.Outcome tells them apart.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Run, error) {
	if err := opts.Validate(o.cfg); err != nil {
		return newRun(opts), err
	}
	run := newRun(opts)
	logger := o.logger.With("program", opts.Program, "aa", opts.CheckedAA)

	o.clean(opts.LogDir, logger)

	err := o.execute(ctx, run, opts, logger)
	if err != nil || !opts.KeepLogs {
		o.clean(opts.LogDir, logger)
	}
	if err != nil {
		run.Outcome = ToolFailure
		logger.Error("pipeline failed", "state", run.State, "error", err)
		return run, err
	}

	logger.Info("pipeline finished", "outcome", run.Outcome, "violations", run.Violations)
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, opts Options, logger hclog.Logger) error {
	program := config.GetProgram(o.cfg, opts.Program)

	instrument, err := o.instrumentCommand(opts, program)
	if err != nil {
		return &ValidationError{Field: "instrument_args", Reason: err.Error()}
	}
	execute, err := o.executeCommand(opts, program)
	if err != nil {
		return &ValidationError{Field: "run_args", Reason: err.Error()}
	}
	if err := o.fs.MkdirAll(opts.LogDir, 0o755); err != nil {
		return fmt.Errorf("unable to create log directory %q: %w", opts.LogDir, err)
	}

	// Instrumenting
	if err := run.enter(Instrumenting, ""); err != nil {
		return err
	}
	logger.Info("instrumenting", "cmd", instrument.String())
	res, err := o.runner.Run(ctx, instrument)
	if err != nil {
		return run.fail(InstrumentFailed, err.Error(), &StageError{State: InstrumentFailed, Command: instrument.String(), Err: err})
	}
	if res.ExitCode != 0 {
		return run.fail(InstrumentFailed, fmt.Sprintf("exit code %d", res.ExitCode), &StageError{State: InstrumentFailed, Command: instrument.String(), ExitCode: res.ExitCode})
	}

	// Executing
	if err := run.enter(Executing, ""); err != nil {
		return err
	}
	logger.Info("running instrumented program", "cmd", execute.String(), "log_dir", opts.LogDir, "time_limit", opts.TimeLimit)
	res, err = o.runner.Run(ctx, execute)
	switch {
	case err != nil && ctx.Err() != nil:
		return err
	case err != nil:
		// A program that cannot start leaves no logs; discovery reports it.
		run.Incomplete = true
		run.warn(fmt.Sprintf("instrumented program failed to run: %v", err))
		logger.Warn("instrumented program failed to run", "error", err)
	case res.TimedOut:
		run.Incomplete = true
		if err := run.enter(ExecutionTimedOut, fmt.Sprintf("time limit %v exceeded", opts.TimeLimit)); err != nil {
			return err
		}
		run.warn("time limit exceeded, traces may be incomplete")
		logger.Warn("time limit exceeded, traces may be incomplete", "time_limit", opts.TimeLimit)
	case res.ExitCode != 0:
		run.Incomplete = true
		run.warn(fmt.Sprintf("instrumented program exited with code %d", res.ExitCode))
		logger.Warn("runtime error in the instrumented program, traces may be incomplete", "exit_code", res.ExitCode)
	}

	// DiscoveringLogs. Every matching log goes to the checker, newest first,
	// rather than only the one discovery.Latest would pick.
	if err := run.enter(DiscoveringLogs, ""); err != nil {
		return err
	}
	logs, err := discovery.Find(o.fs, opts.LogDir, o.cfg.Pipeline.LogPrefix)
	if err != nil {
		return run.fail(NoLogsFound, err.Error(), err)
	}
	if len(logs) == 0 {
		err := &discovery.NoLogsError{Dir: opts.LogDir, Prefix: o.cfg.Pipeline.LogPrefix}
		return run.fail(NoLogsFound, err.Error(), err)
	}
	if len(logs) > 1 {
		run.warn(fmt.Sprintf("%d logs found in %s", len(logs), opts.LogDir))
		logger.Warn("multiple logs found, checking all of them", "dir", opts.LogDir, "count", len(logs), "newest", logs[0].Path)
	}
	run.Logs = discovery.Paths(logs)

	// Checking
	if err := run.enter(Checking, ""); err != nil {
		return err
	}
	check, err := o.checkCommand(opts, run.Logs)
	if err != nil {
		return run.fail(CheckFailed, err.Error(), err)
	}
	logger.Info("checking", "cmd", check.String())
	res, err = o.runner.Run(ctx, check)
	if err != nil {
		return run.fail(CheckFailed, err.Error(), &StageError{State: CheckFailed, Command: check.String(), Err: err})
	}

	outcome, violations, err := o.interpret(res)
	if err != nil {
		return run.fail(CheckFailed, err.Error(), &StageError{State: CheckFailed, Command: check.String(), ExitCode: res.ExitCode, Err: err})
	}
	run.Outcome = outcome
	run.Violations = violations
	return run.enter(Done, string(outcome))
}

// interpret applies the three-way taxonomy to the checker result.
func (o *Orchestrator) interpret(res runner.Result) (Outcome, int, error) {
	count := -1
	if m := detectedRegexp.FindStringSubmatch(res.Output); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			count = n
		}
	}

	violationsCode := o.cfg.Pipeline.ViolationsExitCode
	switch {
	case violationsCode != 0 && res.ExitCode == violationsCode:
		return ViolationsFound, count, nil
	case res.ExitCode != 0:
		return ToolFailure, count, errors.New("checker exited abnormally")
	case count > 0:
		return ViolationsFound, count, nil
	default:
		return Sound, 0, nil
	}
}

func (o *Orchestrator) instrumentCommand(opts Options, program config.Program) (runner.Command, error) {
	args := []string{opts.Program}
	if opts.CheckAll {
		args = append(args, "--hook-all")
	}
	extra, err := runner.SplitArgs(program.InstrumentArgs)
	if err != nil {
		return runner.Command{}, err
	}

	cmd, err := runner.ParseCommand(o.cfg.Pipeline.Instrumenter, append(args, extra...)...)
	if err != nil {
		return runner.Command{}, err
	}
	cmd.Dir = opts.WorkDir
	return cmd, nil
}

func (o *Orchestrator) executeCommand(opts Options, program config.Program) (runner.Command, error) {
	args, err := runner.SplitArgs(program.RunArgs)
	if err != nil {
		return runner.Command{}, err
	}
	return runner.Command{
		Name:    filepath.Join(opts.WorkDir, opts.Program+".inst"),
		Args:    args,
		Env:     []string{LogDirEnv + "=" + opts.LogDir},
		Dir:     opts.WorkDir,
		Timeout: opts.TimeLimit,
	}, nil
}

func (o *Orchestrator) checkCommand(opts Options, logs []string) (runner.Command, error) {
	args := []string{opts.Program + ".bc"}
	args = append(args, logs...)
	args = append(args, opts.CheckedAA, "--baseline", opts.BaselineAA)
	if opts.CheckAll {
		args = append(args, "--check-all")
	}
	args = append(args, opts.ExtraCheckerArgs...)

	cmd, err := runner.ParseCommand(o.cfg.Pipeline.Checker, args...)
	if err != nil {
		return runner.Command{}, err
	}
	cmd.Dir = opts.WorkDir
	return cmd, nil
}

func (o *Orchestrator) clean(dir string, logger hclog.Logger) {
	patterns := discovery.ArtifactPatterns(o.cfg.Pipeline.LogPrefix, o.cfg.Pipeline.ReportPrefix)
	// Failures are already logged by Clean.
	_, _ = discovery.Clean(o.fs, dir, patterns, logger)
}
