package dedup

import (
	"fmt"

	"github.com/spf13/cobra"

	internalclassify "github.com/neongoby/neongoby/internal/classify"
	internaldedup "github.com/neongoby/neongoby/internal/dedup"
	"github.com/neongoby/neongoby/internal/trace"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/files"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

var (
	AppConfig *config.Config

	// DedupCmd prints every distinct missing alias pair once, in the checker's report format.
	DedupCmd = &cobra.Command{
		Use:                   "dedup LOG...",
		Short:                 "Print each missing alias pair once",
		Example:               "  neongoby dedup /tmp/pts-4242 > deduped.log",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runDedup,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runDedup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	lg := logger.NewLogger(AppConfig, "core-dedup")

	for _, path := range args {
		if err := files.ValidatePath(path); err != nil {
			lg.Error("invalid arguments", "error", err)
			return errors.NewCommandError(fmt.Errorf("log %q: %w", path, err), errors.ExitToolFailure)
		}
	}

	values := trace.Values{}
	set, err := internaldedup.FromFiles(args, trace.Options{}, values, internaldedup.FirstSeen)
	if err != nil {
		lg.Error("failed to parse logs", "error", err)
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	lg.Debug("deduplicated", "reports", set.Raw(), "pairs", set.Len())

	res := internalclassify.Classify(set, values, internalclassify.Options{})
	if err := internalclassify.WriteListing(cmd.OutOrStdout(), res); err != nil {
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	return nil
}

func init() {
	DedupCmd.Flags().BoolP("help", "h", false, "Show help for dedup command.")
}
