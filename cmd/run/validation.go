package run

import (
	"fmt"
	"strings"

	"github.com/neongoby/neongoby/internal/pipeline"
)

// buildOptions turns flags and positional arguments into pipeline options.
// Arguments after "--" are handed to the checker verbatim.
func buildOptions(o *RunOptions, args []string, dashAt int) (pipeline.Options, error) {
	positional, extra := args, []string(nil)
	if dashAt >= 0 {
		positional, extra = args[:dashAt], args[dashAt:]
	}
	if len(positional) != 1 {
		return pipeline.Options{}, fmt.Errorf("expected exactly one PROGRAM, got %d", len(positional))
	}

	program := strings.TrimSuffix(positional[0], ".bc")
	if o.CheckedAA == "" {
		return pipeline.Options{}, fmt.Errorf("--aa is required")
	}

	return pipeline.Options{
		Program:          program,
		CheckedAA:        o.CheckedAA,
		BaselineAA:       o.BaselineAA,
		TimeLimit:        o.TimeLimit,
		LogDir:           o.LogDir,
		WorkDir:          o.WorkDir,
		CheckAll:         o.CheckAll,
		ExtraCheckerArgs: extra,
		KeepLogs:         o.KeepLogs,
	}, nil
}
