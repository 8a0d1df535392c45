package classify

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/neongoby/neongoby/cmd/version"
	internalclassify "github.com/neongoby/neongoby/internal/classify"
	"github.com/neongoby/neongoby/internal/dedup"
	internalsarif "github.com/neongoby/neongoby/internal/sarif"
	"github.com/neongoby/neongoby/internal/trace"
	"github.com/neongoby/neongoby/pkg/shared"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/files"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSarif = "sarif"
)

// RunOptions holds flags for the classify command.
type RunOptions struct {
	ScopeAware       bool   `json:"scope_aware,omitempty"`
	Format           string `json:"format,omitempty"`
	OutputPath       string `json:"output_path,omitempty"`
	FlagPolicy       string `json:"flag_policy,omitempty"`
	FailOnViolations bool   `json:"fail_on_violations,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleClassifyUsage = `  # Summarise the missing aliases of one run
  neongoby classify /tmp/pts-4242

  # Split violations by global/local scope
  neongoby classify --scope /tmp/pts-*

  # Union the flags of duplicate reports and export SARIF
  neongoby classify --flag-policy any --format sarif --output report.sarif /tmp/pts-4242`

	// ClassifyCmd deduplicates and classifies missing alias reports.
	ClassifyCmd = &cobra.Command{
		Use:                   "classify [flags] LOG...",
		Short:                 "Deduplicate and classify missing alias reports",
		Example:               exampleClassifyUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runClassify,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runClassify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-classify")

	policy, err := validate(&opts, args)
	if err != nil {
		lg.Error("invalid arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid arguments: %w", err), errors.ExitToolFailure)
	}

	values := trace.Values{}
	set, err := dedup.FromFiles(args, trace.Options{ScopeAware: opts.ScopeAware}, values, policy)
	if err != nil {
		lg.Error("failed to parse logs", "error", err)
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	res := internalclassify.Classify(set, values, internalclassify.Options{ScopeAware: opts.ScopeAware})
	lg.Debug("classified", "reports", res.Reports, "pairs", res.Tally.Total())

	if opts.Format == FormatSarif {
		if err := writeSarif(cmd.OutOrStdout(), lg, res); err != nil {
			return err
		}
	} else if err := writeOutput(cmd.OutOrStdout(), lg, res); err != nil {
		return err
	}

	if opts.FailOnViolations && res.Tally.Total() > 0 {
		return errors.NewViolationsError(res.Tally.Total())
	}
	return nil
}

func writeOutput(stdout io.Writer, lg hclog.Logger, res internalclassify.Result) error {
	var buf bytes.Buffer
	if err := render(&buf, res, opts.Format); err != nil {
		return errors.NewCommandError(fmt.Errorf("failed to render %s output: %w", opts.Format, err), errors.ExitToolFailure)
	}

	if opts.OutputPath == "" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return errors.NewCommandError(err, errors.ExitToolFailure)
		}
		return nil
	}
	if err := files.WriteFile(opts.OutputPath, buf.Bytes()); err != nil {
		lg.Error("failed to write output", "path", opts.OutputPath, "error", err)
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	lg.Info("results saved to file", "path", opts.OutputPath)
	return nil
}

// writeSarif emits dereferenced pairs first and logs the per-level counts.
func writeSarif(stdout io.Writer, lg hclog.Logger, res internalclassify.Result) error {
	report, err := internalsarif.FromClassification(res, version.CoreVersion)
	if err != nil {
		return errors.NewCommandError(fmt.Errorf("failed to render sarif output: %w", err), errors.ExitToolFailure)
	}
	report.SortResultsByLevel()

	levels := report.CollectLevelInfo()
	lg.Info("SARIF report built", "error", levels["error"], "warning", levels["warning"], "total", levels["total"])

	if opts.OutputPath == "" {
		if err := report.PrettyWrite(stdout); err != nil {
			return errors.NewCommandError(err, errors.ExitToolFailure)
		}
		return nil
	}
	if err := report.WriteFile(opts.OutputPath); err != nil {
		lg.Error("failed to write SARIF report", "path", opts.OutputPath, "error", err)
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	lg.Info("SARIF report saved to file", "path", opts.OutputPath)
	return nil
}

func render(w io.Writer, res internalclassify.Result, format string) error {
	if format == FormatJSON {
		return internalclassify.WriteJSON(w, res)
	}
	if err := internalclassify.WriteListing(w, res); err != nil {
		return err
	}
	return internalclassify.WriteSummary(w, res)
}

func init() {
	ClassifyCmd.Flags().BoolVar(&opts.ScopeAware, "scope", false, "Classify pairs by the enclosing functions of both pointers")
	ClassifyCmd.Flags().StringVarP(&opts.Format, "format", "f", FormatText, "Output format: text, json or sarif")
	ClassifyCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Write the result to a file instead of stdout")
	ClassifyCmd.Flags().StringVar(&opts.FlagPolicy, "flag-policy", dedup.FirstSeen.String(), "Flags kept for a pair reported several times: first-seen or any")
	ClassifyCmd.Flags().BoolVar(&opts.FailOnViolations, "fail-on-violations", false, "Exit with the violations code when any pair is found")
	ClassifyCmd.Flags().BoolP("help", "h", false, "Show help for classify command.")
}
