package clean

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/neongoby/neongoby/internal/discovery"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

var (
	AppConfig *config.Config
	fs        = afero.NewOsFs()

	// CleanCmd removes the logs and reports an earlier run left behind.
	CleanCmd = &cobra.Command{
		Use:                   "clean [DIR]",
		Short:                 "Remove stale trace logs and reports",
		Example:               "  neongoby clean /tmp",
		Args:                  cobra.MaximumNArgs(1),
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runClean,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runClean(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "core-clean")

	cfg := AppConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dir := config.GetLogDir(cfg)
	if len(args) == 1 {
		dir = args[0]
	}

	patterns := discovery.ArtifactPatterns(cfg.Pipeline.LogPrefix, cfg.Pipeline.ReportPrefix)
	removed, err := discovery.Clean(fs, dir, patterns, lg)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d files from %s\n", removed, dir)
	if err != nil {
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}
	return nil
}

func init() {
	CleanCmd.Flags().BoolP("help", "h", false, "Show help for clean command.")
}
