package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neongoby/neongoby/pkg/shared/config"
)

// bc2bdd-aa reads its configuration from the working directory.
const (
	bc2bddAnalysis   = "bc2bdd-aa"
	bc2bddConfigFile = "bc2bdd.conf"
)

// Options describe one pipeline run.
type Options struct {
	// Program is the target name; <Program>.bc and <Program>.inst live in WorkDir.
	Program    string
	CheckedAA  string
	BaselineAA string
	TimeLimit  time.Duration
	LogDir     string
	WorkDir    string
	// CheckAll hooks and checks every pointer instead of the dereferenced ones.
	CheckAll         bool
	ExtraCheckerArgs []string
	// KeepLogs leaves the logs of a successful run on disk.
	KeepLogs bool
}

// ValidationError rejects options before any subprocess is started.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate fills defaults from cfg and rejects unusable options.
func (o *Options) Validate(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if strings.TrimSpace(o.Program) == "" {
		return &ValidationError{Field: "program", Reason: "program name must not be empty"}
	}
	if o.CheckedAA == "" {
		return &ValidationError{Field: "aa", Reason: "the checked alias analysis is required"}
	}
	if !config.IsKnownAnalysis(cfg, o.CheckedAA) {
		return &ValidationError{Field: "aa", Reason: fmt.Sprintf("unknown alias analysis %q, expected one of %v", o.CheckedAA, cfg.Analyses.Choices)}
	}

	o.BaselineAA = config.SetThen(o.BaselineAA, cfg.Analyses.DefaultBaseline)
	if !config.IsKnownBaseline(cfg, o.BaselineAA) {
		return &ValidationError{Field: "baseline", Reason: fmt.Sprintf("%q cannot be a baseline, expected one of %v", o.BaselineAA, cfg.Analyses.Baselines)}
	}
	if o.BaselineAA == o.CheckedAA {
		return &ValidationError{Field: "baseline", Reason: "baseline and the checked alias analysis must be different"}
	}

	if o.TimeLimit < 0 {
		return &ValidationError{Field: "time-limit", Reason: fmt.Sprintf("%v cannot be negative", o.TimeLimit)}
	}
	o.TimeLimit = config.SetThen(o.TimeLimit, cfg.Pipeline.TimeLimit)
	o.LogDir = config.SetThen(o.LogDir, config.GetLogDir(cfg))

	workDir, err := filepath.Abs(config.SetThen(o.WorkDir, "."))
	if err != nil {
		return &ValidationError{Field: "workdir", Reason: err.Error()}
	}
	o.WorkDir = workDir

	if o.CheckedAA == bc2bddAnalysis || o.BaselineAA == bc2bddAnalysis {
		if _, err := os.Stat(filepath.Join(o.WorkDir, bc2bddConfigFile)); err != nil {
			return &ValidationError{Field: "aa", Reason: fmt.Sprintf("%s requires %s in %q", bc2bddAnalysis, bc2bddConfigFile, o.WorkDir)}
		}
	}
	return nil
}
