package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	internalbatch "github.com/neongoby/neongoby/internal/batch"
	"github.com/neongoby/neongoby/internal/pipeline"
	"github.com/neongoby/neongoby/internal/runner"
	"github.com/neongoby/neongoby/pkg/shared/artifacts"
	"github.com/neongoby/neongoby/pkg/shared"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

// RunOptions holds flags for the batch command.
type RunOptions struct {
	CheckedAA  string        `json:"aa,omitempty"`
	BaselineAA string        `json:"baseline,omitempty"`
	TimeLimit  time.Duration `json:"time_limit,omitempty"`
	Jobs       int           `json:"jobs,omitempty"`
	Workspace  string        `json:"workspace,omitempty"`
	CheckAll   bool          `json:"check_all,omitempty"`
	KeepLogs   bool          `json:"keep_logs,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	// newRunner and fs are replaced in tests.
	newRunner = func(lg hclog.Logger, _ io.Writer) runner.Runner {
		return runner.NewExec(lg)
	}
	fs = afero.NewOsFs()

	exampleBatchUsage = `  # Validate ds-aa on every benchmark, four at a time
  neongoby batch 'bench/**/*.bc' --aa ds-aa -j 4

  # Save the aggregated launches to a folder
  neongoby batch mcf gzip --aa anders-aa --output results/`

	// BatchCmd validates one alias analysis on many programs.
	BatchCmd = &cobra.Command{
		Use:                   "batch PATTERN... --aa AA [flags]",
		Short:                 "Validate an alias analysis on many programs in parallel",
		Example:               exampleBatchUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runBatch,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-batch")

	cfg := AppConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	batchOpts, err := validate(&opts, cfg, args)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitToolFailure)
	}

	targets, err := internalbatch.ExpandTargets(args)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitToolFailure)
	}

	orchestrator := pipeline.NewOrchestrator(cfg, newRunner(lg, cmd.OutOrStdout()), fs, lg)
	summary := internalbatch.Run(cmd.Context(), orchestrator, fs, targets, batchOpts, lg)
	launches := summary.Launches()

	out := cmd.OutOrStdout()
	for _, r := range summary.Results {
		fmt.Fprintf(out, "%s\t%s\n", r.Target.Bitcode(), r.Outcome)
	}

	if opts.OutputPath != "" {
		if _, err := artifacts.SaveArtifactJSON(lg, opts.OutputPath, "batch", opts.CheckedAA, launches); err != nil {
			lg.Error("unable to save results", "error", err)
			return errors.NewCommandErrorWithResult(launches, err, errors.ExitToolFailure)
		}
	}

	switch summary.Outcome() {
	case pipeline.ToolFailure:
		failed := summary.Count(pipeline.ToolFailure)
		return errors.NewCommandErrorWithResult(launches, fmt.Errorf("%d of %d runs failed", failed, len(summary.Results)), errors.ExitToolFailure)
	case pipeline.ViolationsFound:
		n := summary.Count(pipeline.ViolationsFound)
		return errors.NewCommandErrorWithResult(launches, fmt.Errorf("missing aliases detected in %d of %d programs", n, len(summary.Results)), errors.ExitViolationsFound)
	}
	return nil
}

func init() {
	BatchCmd.Flags().StringVar(&opts.CheckedAA, "aa", "", "Alias analysis to check")
	BatchCmd.Flags().StringVar(&opts.BaselineAA, "baseline", "", "Baseline alias analysis (default: analyses.default_baseline)")
	BatchCmd.Flags().DurationVar(&opts.TimeLimit, "time-limit", 0, "Wall-clock limit of each instrumented program (default: pipeline.time_limit)")
	BatchCmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Number of programs validated concurrently (default: batch.jobs)")
	BatchCmd.Flags().StringVar(&opts.Workspace, "workspace", "", "Parent of the per-run log directories (default: batch.workspace)")
	BatchCmd.Flags().BoolVar(&opts.CheckAll, "all", false, "Hook and check every pointer, not only dereferenced ones")
	BatchCmd.Flags().BoolVar(&opts.KeepLogs, "keep-logs", false, "Leave the trace logs of finished runs on disk")
	BatchCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Save the launches as JSON to this file or folder")
	BatchCmd.Flags().BoolP("help", "h", false, "Show help for batch command.")
}
