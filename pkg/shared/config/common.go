package config

import (
	"os"
	"runtime"

	"golang.org/x/exp/slices"
)

// DefaultConfig returns the configuration used when no YAML file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Logger: Logger{
			Level: "INFO",
		},
		Pipeline: Pipeline{
			LogDir:             os.TempDir(),
			LogPrefix:          "pts",
			ReportPrefix:       "report",
			Instrumenter:       "ng_hook_mem.py",
			Checker:            "ng_check_aa.py",
			ViolationsExitCode: 0,
		},
		Analyses: Analyses{
			Choices:         []string{"tbaa", "basicaa", "no-aa", "ds-aa", "anders-aa", "bc2bdd-aa", "su-aa", "scev-aa"},
			Baselines:       []string{"no-aa", "basicaa", "tbaa"},
			DefaultBaseline: "no-aa",
		},
		Programs: map[string]Program{},
		Batch: Batch{
			Jobs:      runtime.NumCPU(),
			Workspace: os.TempDir(),
		},
	}
}

// GetLogDir returns the directory the instrumented program writes its trace logs to.
func GetLogDir(cfg *Config) string {
	if cfg == nil || cfg.Pipeline.LogDir == "" {
		return os.TempDir()
	}
	return cfg.Pipeline.LogDir
}

// GetProgram returns the static flag set registered for a program, or an empty one.
func GetProgram(cfg *Config, name string) Program {
	if cfg == nil {
		return Program{}
	}
	return cfg.Programs[name]
}

// IsKnownAnalysis reports whether aa is one of the configured checked analyses.
func IsKnownAnalysis(cfg *Config, aa string) bool {
	return cfg != nil && slices.Contains(cfg.Analyses.Choices, aa)
}

// IsKnownBaseline reports whether aa may serve as a baseline analysis.
func IsKnownBaseline(cfg *Config, aa string) bool {
	return cfg != nil && slices.Contains(cfg.Analyses.Baselines, aa)
}
