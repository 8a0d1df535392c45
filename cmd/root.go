package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neongoby/neongoby/cmd/batch"
	"github.com/neongoby/neongoby/cmd/classify"
	"github.com/neongoby/neongoby/cmd/clean"
	"github.com/neongoby/neongoby/cmd/dedup"
	"github.com/neongoby/neongoby/cmd/discover"
	"github.com/neongoby/neongoby/cmd/run"
	"github.com/neongoby/neongoby/cmd/version"
	"github.com/neongoby/neongoby/pkg/shared/config"
	"github.com/neongoby/neongoby/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "neongoby [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "NeonGoby validates alias analyses against recorded executions.",
		Long: `NeonGoby validates a static alias analysis offline. It instruments a program,
runs it to record the pointers it dereferences, and checks that every pair of
pointers observed to alias is also reported as aliasing by the analysis.

Exit codes: 0 sound, 1 tool failure, 2 missing aliases detected.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yml when present)")

	rootCmd.AddCommand(run.RunCmd)
	rootCmd.AddCommand(batch.BatchCmd)
	rootCmd.AddCommand(classify.ClassifyCmd)
	rootCmd.AddCommand(dedup.DedupCmd)
	rootCmd.AddCommand(discover.DiscoverCmd)
	rootCmd.AddCommand(clean.CleanCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the selected command and returns the process exit code.
// SIGINT and SIGTERM cancel the running command.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return errors.ExitCodeFor(err)
	}
	return errors.ExitSound
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		return errors.NewCommandError(fmt.Errorf("initializing config: %w", err), errors.ExitToolFailure)
	}

	run.Init(AppConfig)
	batch.Init(AppConfig)
	classify.Init(AppConfig)
	dedup.Init(AppConfig)
	discover.Init(AppConfig)
	clean.Init(AppConfig)
	version.Init(AppConfig)
	return nil
}
