package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neongoby/neongoby/internal/discovery"
	"github.com/neongoby/neongoby/internal/runner"
	"github.com/neongoby/neongoby/pkg/shared/config"
	ngerrors "github.com/neongoby/neongoby/pkg/shared/errors"
)

const (
	testLogDir  = "/logs"
	testWorkDir = "/work"
)

type fakeRunner struct {
	calls      []runner.Command
	instrument func(runner.Command) (runner.Result, error)
	execute    func(runner.Command) (runner.Result, error)
	check      func(runner.Command) (runner.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.calls = append(f.calls, cmd)
	var handler func(runner.Command) (runner.Result, error)
	switch {
	case cmd.Name == "ng_hook_mem.py":
		handler = f.instrument
	case strings.HasSuffix(cmd.Name, ".inst"):
		handler = f.execute
	case cmd.Name == "ng_check_aa.py":
		handler = f.check
	}
	if handler == nil {
		return runner.Result{}, nil
	}
	return handler(cmd)
}

func writesLogs(fs afero.Fs, names ...string) func(runner.Command) (runner.Result, error) {
	return func(runner.Command) (runner.Result, error) {
		for _, name := range names {
			if err := afero.WriteFile(fs, filepath.Join(testLogDir, name), []byte("trace"), 0644); err != nil {
				return runner.Result{}, err
			}
		}
		return runner.Result{}, nil
	}
}

func checkerSays(code int, output string) func(runner.Command) (runner.Result, error) {
	return func(runner.Command) (runner.Result, error) {
		return runner.Result{ExitCode: code, Output: output}, nil
	}
}

func testOptions() Options {
	return Options{
		Program:   "prog",
		CheckedAA: "ds-aa",
		LogDir:    testLogDir,
		WorkDir:   testWorkDir,
	}
}

func newTestOrchestrator(cfg *config.Config, r runner.Runner, fs afero.Fs) *Orchestrator {
	return NewOrchestrator(cfg, r, fs, hclog.NewNullLogger())
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestRunViolationsFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		execute: writesLogs(fs, "pts-4242"),
		check:   checkerSays(0, "\x1b[0;1;31mMissing alias:\x1b[0m (intra) (deref)\n[1] a\n[2] b\nDetected 3 missing aliases.\n"),
	}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, ViolationsFound, run.Outcome)
	assert.Equal(t, ngerrors.ExitViolationsFound, run.Outcome.ExitCode())
	assert.Equal(t, 3, run.Violations)
	assert.Equal(t, []State{Instrumenting, Executing, DiscoveringLogs, Checking, Done}, run.States())
	assert.Equal(t, []string{"/logs/pts-4242"}, run.Logs)

	require.Len(t, r.calls, 3)
	assert.Equal(t, []string{"prog.bc", "/logs/pts-4242", "ds-aa", "--baseline", "no-aa"}, r.calls[2].Args)
	assert.Equal(t, testWorkDir, r.calls[2].Dir)
	assert.False(t, exists(t, fs, "/logs/pts-4242"), "logs are removed after the run")
}

func TestRunSoundKeepsLogs(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		execute: writesLogs(fs, "pts-1"),
		check:   checkerSays(0, "Congrats! You passed all the tests.\n"),
	}
	opts := testOptions()
	opts.KeepLogs = true

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, Sound, run.Outcome)
	assert.Equal(t, ngerrors.ExitSound, run.Outcome.ExitCode())
	assert.Zero(t, run.Violations)
	assert.True(t, exists(t, fs, "/logs/pts-1"))
}

func TestRunNoLogsFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{check: checkerSays(0, "Detected 1 missing aliases.")}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())
	require.Error(t, err)

	var noLogs *discovery.NoLogsError
	require.True(t, errors.As(err, &noLogs))
	assert.Equal(t, testLogDir, noLogs.Dir)
	assert.Equal(t, NoLogsFound, run.State)
	assert.Equal(t, ToolFailure, run.Outcome)
	assert.Equal(t, ngerrors.ExitToolFailure, run.Outcome.ExitCode())
	assert.NotEqual(t, ngerrors.ExitViolationsFound, run.Outcome.ExitCode())
	assert.Len(t, r.calls, 2, "the checker is never started")
}

func TestRunInstrumentFailed(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{instrument: checkerSays(1, "opt: prog.bc: No such file")}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, InstrumentFailed, stageErr.State)
	assert.Equal(t, 1, stageErr.ExitCode)
	assert.Equal(t, InstrumentFailed, run.State)
	assert.True(t, run.State.Failed())
	assert.Len(t, r.calls, 1)
}

func TestRunTimeoutContinues(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		execute: func(cmd runner.Command) (runner.Result, error) {
			if _, err := writesLogs(fs, "pts-7")(cmd); err != nil {
				return runner.Result{}, err
			}
			return runner.Result{TimedOut: true, ExitCode: -1}, nil
		},
		check: checkerSays(0, "Congrats! You passed all the tests."),
	}
	opts := testOptions()
	opts.TimeLimit = 30 * time.Second

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []State{Instrumenting, Executing, ExecutionTimedOut, DiscoveringLogs, Checking, Done}, run.States())
	assert.True(t, run.Incomplete)
	assert.NotEmpty(t, run.Warnings)
	assert.Equal(t, Sound, run.Outcome)
	assert.Equal(t, 30*time.Second, r.calls[1].Timeout)
}

func TestRunRuntimeErrorContinues(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		execute: func(cmd runner.Command) (runner.Result, error) {
			_, err := writesLogs(fs, "pts-7")(cmd)
			return runner.Result{ExitCode: 134}, err
		},
		check: checkerSays(0, "Detected 2 missing aliases."),
	}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())
	require.NoError(t, err)
	assert.True(t, run.Incomplete)
	assert.Equal(t, ViolationsFound, run.Outcome)
	assert.NotContains(t, run.States(), ExecutionTimedOut)
}

func TestRunCheckerOutcomes(t *testing.T) {
	tests := []struct {
		name           string
		violationsCode int
		exitCode       int
		output         string
		want           Outcome
		wantErr        bool
		wantCount      int
	}{
		{name: "clean", output: "Congrats! You passed all the tests.", want: Sound},
		{name: "detected in output", output: "Detected 12 missing aliases.", want: ViolationsFound, wantCount: 12},
		{name: "zero detected", output: "Detected 0 missing aliases.", want: Sound},
		{name: "dedicated exit code", violationsCode: 3, exitCode: 3, want: ViolationsFound, wantCount: -1},
		{name: "crash", exitCode: 139, output: "Segmentation fault", want: ToolFailure, wantErr: true},
		{name: "crash with dedicated code configured", violationsCode: 3, exitCode: 1, want: ToolFailure, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			cfg := config.DefaultConfig()
			cfg.Pipeline.ViolationsExitCode = tt.violationsCode
			r := &fakeRunner{execute: writesLogs(fs, "pts-1"), check: checkerSays(tt.exitCode, tt.output)}

			run, err := newTestOrchestrator(cfg, r, fs).Run(context.Background(), testOptions())
			assert.Equal(t, tt.want, run.Outcome)
			if tt.wantErr {
				var stageErr *StageError
				require.True(t, errors.As(err, &stageErr))
				assert.Equal(t, CheckFailed, run.State)
				assert.Equal(t, tt.exitCode, stageErr.ExitCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Done, run.State)
			assert.Equal(t, tt.wantCount, run.Violations)
		})
	}
}

func TestRunCleansStaleArtifactsFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/logs/pts-99", []byte("stale"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/logs/report-99", []byte("stale"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/logs/unrelated", []byte("keep"), 0644))

	var sawStale bool
	r := &fakeRunner{
		instrument: func(runner.Command) (runner.Result, error) {
			sawStale = exists(t, fs, "/logs/pts-99") || exists(t, fs, "/logs/report-99")
			return runner.Result{}, nil
		},
		execute: writesLogs(fs, "pts-100"),
		check:   checkerSays(0, ""),
	}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())
	require.NoError(t, err)
	assert.False(t, sawStale)
	assert.Equal(t, []string{"/logs/pts-100"}, run.Logs)
	assert.True(t, exists(t, fs, "/logs/unrelated"))
}

func TestRunMultipleLogs(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		execute: func(cmd runner.Command) (runner.Result, error) {
			if _, err := writesLogs(fs, "pts-1")(cmd); err != nil {
				return runner.Result{}, err
			}
			later := time.Now().Add(time.Minute)
			if _, err := writesLogs(fs, "pts-2")(cmd); err != nil {
				return runner.Result{}, err
			}
			return runner.Result{}, fs.Chtimes("/logs/pts-2", later, later)
		},
		check: checkerSays(0, ""),
	}

	run, err := newTestOrchestrator(config.DefaultConfig(), r, fs).Run(context.Background(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"/logs/pts-2", "/logs/pts-1"}, run.Logs)
	assert.Len(t, run.Warnings, 1)
	assert.Equal(t, []string{"prog.bc", "/logs/pts-2", "/logs/pts-1", "ds-aa", "--baseline", "no-aa"}, r.calls[2].Args)
}

func TestRunCommandLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.DefaultConfig()
	cfg.Programs["prog"] = config.Program{InstrumentArgs: "-lm -lpthread", RunArgs: `--input "a b.txt"`}
	r := &fakeRunner{execute: writesLogs(fs, "pts-1"), check: checkerSays(0, "")}

	opts := testOptions()
	opts.CheckAll = true
	opts.BaselineAA = "basicaa"
	opts.ExtraCheckerArgs = []string{"--root-only"}

	_, err := newTestOrchestrator(cfg, r, fs).Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, r.calls, 3)

	assert.Equal(t, []string{"prog", "--hook-all", "-lm", "-lpthread"}, r.calls[0].Args)
	assert.Equal(t, "/work/prog.inst", r.calls[1].Name)
	assert.Equal(t, []string{"--input", "a b.txt"}, r.calls[1].Args)
	assert.Equal(t, []string{"LOG_DIR=/logs"}, r.calls[1].Env)
	assert.Equal(t, []string{"prog.bc", "/logs/pts-1", "ds-aa", "--baseline", "basicaa", "--check-all", "--root-only"}, r.calls[2].Args)
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{name: "empty program", modify: func(o *Options) { o.Program = " " }, field: "program"},
		{name: "missing analysis", modify: func(o *Options) { o.CheckedAA = "" }, field: "aa"},
		{name: "unknown analysis", modify: func(o *Options) { o.CheckedAA = "steens-aa" }, field: "aa"},
		{name: "baseline not allowed", modify: func(o *Options) { o.BaselineAA = "ds-aa"; o.CheckedAA = "basicaa" }, field: "baseline"},
		{name: "baseline equals checked", modify: func(o *Options) { o.CheckedAA = "basicaa"; o.BaselineAA = "basicaa" }, field: "baseline"},
		{name: "default baseline equals checked", modify: func(o *Options) { o.CheckedAA = "no-aa" }, field: "baseline"},
		{name: "negative time limit", modify: func(o *Options) { o.TimeLimit = -time.Second }, field: "time-limit"},
		{name: "bc2bdd without its config", modify: func(o *Options) { o.CheckedAA = "bc2bdd-aa"; o.WorkDir = "/nonexistent-neongoby" }, field: "aa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			opts := testOptions()
			tt.modify(&opts)

			run, err := newTestOrchestrator(config.DefaultConfig(), r, afero.NewMemMapFs()).Run(context.Background(), opts)

			var validation *ValidationError
			require.True(t, errors.As(err, &validation), "got %v", err)
			assert.Equal(t, tt.field, validation.Field)
			assert.Empty(t, r.calls, "nothing is started")
			assert.Equal(t, ToolFailure, run.Outcome)
		})
	}
}

func TestRunRejectsUnparsableProgramArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Programs["prog"] = config.Program{RunArgs: `"unterminated`}
	r := &fakeRunner{}

	_, err := newTestOrchestrator(cfg, r, afero.NewMemMapFs()).Run(context.Background(), testOptions())
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "run_args", validation.Field)
	assert.Empty(t, r.calls)
}

func TestOptionsValidateDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bc2bdd.conf"), nil, 0644))

	cfg := config.DefaultConfig()
	cfg.Pipeline.LogDir = "/var/ng"
	cfg.Pipeline.TimeLimit = time.Minute

	opts := Options{Program: "prog", CheckedAA: "bc2bdd-aa", WorkDir: dir}
	require.NoError(t, opts.Validate(cfg))
	assert.Equal(t, "no-aa", opts.BaselineAA)
	assert.Equal(t, "/var/ng", opts.LogDir)
	assert.Equal(t, time.Minute, opts.TimeLimit)
	assert.Equal(t, dir, opts.WorkDir)
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition("", Instrumenting))
	assert.True(t, CanTransition(ExecutionTimedOut, DiscoveringLogs))
	assert.False(t, CanTransition(Instrumenting, Checking))
	assert.False(t, CanTransition(Done, Instrumenting))

	for _, s := range []State{Done, InstrumentFailed, NoLogsFound, CheckFailed} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, ExecutionTimedOut.Terminal())
	assert.False(t, ExecutionTimedOut.Failed())
	assert.False(t, Done.Failed())
}

func TestRunEnterRejectsInvalidTransition(t *testing.T) {
	run := newRun(testOptions())
	require.NoError(t, run.enter(Instrumenting, ""))

	err := run.enter(Checking, "")
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, Instrumenting, transitionErr.From)
	assert.Equal(t, Checking, transitionErr.To)
	assert.Equal(t, Instrumenting, run.State)
	assert.Len(t, run.History, 1)

	cause := errors.New("checker crashed")
	err = run.fail(CheckFailed, "crash", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, Instrumenting, run.State)
}
