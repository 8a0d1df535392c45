package run

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/neongoby/neongoby/internal/pipeline"
	"github.com/neongoby/neongoby/internal/runner"
	"github.com/neongoby/neongoby/pkg/shared"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/files"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	CheckedAA  string        `json:"aa,omitempty"`
	BaselineAA string        `json:"baseline,omitempty"`
	TimeLimit  time.Duration `json:"time_limit,omitempty"`
	LogDir     string        `json:"log_dir,omitempty"`
	WorkDir    string        `json:"work_dir,omitempty"`
	CheckAll   bool          `json:"check_all,omitempty"`
	KeepLogs   bool          `json:"keep_logs,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// newRunner and fs are replaced in tests.
	newRunner = func(lg hclog.Logger, out io.Writer) runner.Runner {
		return runner.NewExec(lg).WithOutput(out)
	}
	fs = afero.NewOsFs()

	exampleRunUsage = `  # Validate ds-aa against the default baseline on ./mcf.bc
  neongoby run mcf --aa ds-aa

  # Hook every pointer, give the program ten minutes and keep the logs
  neongoby run mcf --aa anders-aa --baseline basicaa --all --time-limit 10m --keep-logs

  # Pass extra arguments to the checker
  neongoby run mcf --aa ds-aa -- --debug`

	// RunCmd instruments, executes and checks one program.
	RunCmd = &cobra.Command{
		Use:                   "run PROGRAM --aa AA [flags] [-- CHECKER_ARGS...]",
		Short:                 "Validate an alias analysis on one program",
		Example:               exampleRunUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runRun,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-run")

	pipelineOpts, err := buildOptions(&opts, args, cmd.ArgsLenAtDash())
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitToolFailure)
	}

	orchestrator := pipeline.NewOrchestrator(AppConfig, newRunner(lg, cmd.OutOrStdout()), fs, lg)

	run, err := orchestrator.Run(cmd.Context(), pipelineOpts)
	if saveErr := saveRun(run); saveErr != nil {
		lg.Warn("unable to save run record", "path", opts.OutputPath, "error", saveErr)
	}
	if err != nil {
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", run.Program, run.Outcome, run.State)
	if run.Outcome == pipeline.ViolationsFound {
		return errors.NewViolationsError(run.Violations)
	}
	return nil
}

func saveRun(run *pipeline.Run) error {
	if opts.OutputPath == "" || run == nil {
		return nil
	}
	data, err := json.MarshalIndent(run, "", "    ")
	if err != nil {
		return err
	}
	return files.WriteFile(opts.OutputPath, data)
}

func init() {
	RunCmd.Flags().StringVar(&opts.CheckedAA, "aa", "", "Alias analysis to check")
	RunCmd.Flags().StringVar(&opts.BaselineAA, "baseline", "", "Baseline alias analysis (default: analyses.default_baseline)")
	RunCmd.Flags().DurationVar(&opts.TimeLimit, "time-limit", 0, "Wall-clock limit of the instrumented program, 0 for none (default: pipeline.time_limit)")
	RunCmd.Flags().StringVar(&opts.LogDir, "dir", "", "Directory the program writes its trace logs to (default: pipeline.log_dir)")
	RunCmd.Flags().StringVar(&opts.WorkDir, "workdir", "", "Directory holding PROGRAM.bc (default: current directory)")
	RunCmd.Flags().BoolVar(&opts.CheckAll, "all", false, "Hook and check every pointer, not only dereferenced ones")
	RunCmd.Flags().BoolVar(&opts.KeepLogs, "keep-logs", false, "Leave the trace logs of a finished run on disk")
	RunCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Write the run record as JSON to this file")
	RunCmd.Flags().BoolP("help", "h", false, "Show help for run command.")
}
