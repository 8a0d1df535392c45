package batch

import (
	"fmt"

	internalbatch "github.com/neongoby/neongoby/internal/batch"
	"github.com/neongoby/neongoby/internal/pipeline"
	"github.com/neongoby/neongoby/pkg/shared/config"
)

// validate checks the flags shared by every run and fills batch defaults from cfg.
// Per-program checks happen in each run.
func validate(o *RunOptions, cfg *config.Config, args []string) (internalbatch.Options, error) {
	if len(args) == 0 {
		return internalbatch.Options{}, fmt.Errorf("at least one PATTERN is required")
	}
	if o.CheckedAA == "" {
		return internalbatch.Options{}, fmt.Errorf("--aa is required")
	}
	if !config.IsKnownAnalysis(cfg, o.CheckedAA) {
		return internalbatch.Options{}, fmt.Errorf("unknown alias analysis %q, expected one of %v", o.CheckedAA, cfg.Analyses.Choices)
	}
	if o.Jobs < 0 {
		return internalbatch.Options{}, fmt.Errorf("--jobs cannot be negative: %d", o.Jobs)
	}
	if o.TimeLimit < 0 {
		return internalbatch.Options{}, fmt.Errorf("--time-limit cannot be negative: %v", o.TimeLimit)
	}

	return internalbatch.Options{
		Template: pipeline.Options{
			CheckedAA:  o.CheckedAA,
			BaselineAA: o.BaselineAA,
			TimeLimit:  o.TimeLimit,
			CheckAll:   o.CheckAll,
			KeepLogs:   o.KeepLogs,
		},
		Jobs:      config.SetThen(o.Jobs, cfg.Batch.Jobs),
		Workspace: config.SetThen(o.Workspace, cfg.Batch.Workspace),
	}, nil
}
