package discover

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/neongoby/neongoby/internal/discovery"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
	"github.com/neongoby/neongoby/pkg/shared/logger"
)

// RunOptions holds flags for the discover command.
type RunOptions struct {
	Dir    string `json:"dir,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	All    bool   `json:"all,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions
	fs        = afero.NewOsFs()

	exampleDiscoverUsage = `  # Print the most recent trace log in the configured log directory
  neongoby discover

  # List every candidate, newest first
  neongoby discover --dir /tmp/run-1 --all`

	// DiscoverCmd locates the trace logs written by an instrumented program.
	DiscoverCmd = &cobra.Command{
		Use:                   "discover [--dir DIR] [--prefix PREFIX] [--all]",
		Short:                 "Find the most recent trace log",
		Example:               exampleDiscoverUsage,
		Args:                  cobra.NoArgs,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runDiscover,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runDiscover(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "core-discover")

	cfg := AppConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dir := config.SetThen(opts.Dir, config.GetLogDir(cfg))
	prefix := config.SetThen(opts.Prefix, cfg.Pipeline.LogPrefix)

	sel, err := discovery.Latest(fs, dir, prefix, lg)
	if err != nil {
		lg.Error("log discovery failed", "error", err)
		return errors.NewCommandError(err, errors.ExitToolFailure)
	}

	out := cmd.OutOrStdout()
	if !opts.All {
		fmt.Fprintln(out, sel.Path)
		return nil
	}
	for _, l := range sel.Candidates {
		fmt.Fprintln(out, l.Path)
	}
	return nil
}

func init() {
	DiscoverCmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory holding the trace logs (default: pipeline.log_dir)")
	DiscoverCmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Log file prefix (default: pipeline.log_prefix)")
	DiscoverCmd.Flags().BoolVar(&opts.All, "all", false, "Print every matching log, newest first")
	DiscoverCmd.Flags().BoolP("help", "h", false, "Show help for discover command.")
}
