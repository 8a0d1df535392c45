package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/neongoby/neongoby/pkg/shared/files"
)

const (
	envLogDir    = "NEONGOBY_LOG_DIR"
	envWorkspace = "NEONGOBY_WORKSPACE"

	maxTimeLimit = 24 * time.Hour
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidatePipelineConfig(&cfg.Pipeline); err != nil {
		return fmt.Errorf("YAML global config: pipeline directive is invalid: %w", err)
	}
	if err := ValidateAnalysesConfig(&cfg.Analyses); err != nil {
		return fmt.Errorf("YAML global config: analyses directive is invalid: %w", err)
	}
	if err := ValidateBatchConfig(&cfg.Batch); err != nil {
		return fmt.Errorf("YAML global config: batch directive is invalid: %w", err)
	}
	if cfg.Programs == nil {
		cfg.Programs = map[string]Program{}
	}
	return nil
}

// ValidatePipelineConfig checks the pipeline directive and applies environment overrides.
func ValidatePipelineConfig(p *Pipeline) error {
	if p == nil {
		return fmt.Errorf("pipeline configuration is nil")
	}
	if err := updateFolder(&p.LogDir, envLogDir, os.TempDir()); err != nil {
		return fmt.Errorf("failed to update log folder: %w", err)
	}
	if err := validatePrefix(p.LogPrefix, "log_prefix"); err != nil {
		return err
	}
	if err := validatePrefix(p.ReportPrefix, "report_prefix"); err != nil {
		return err
	}
	if strings.TrimSpace(p.Instrumenter) == "" {
		return fmt.Errorf("instrumenter command must not be empty")
	}
	if strings.TrimSpace(p.Checker) == "" {
		return fmt.Errorf("checker command must not be empty")
	}
	if err := validateDuration(p.TimeLimit, "time_limit", maxTimeLimit); err != nil {
		return err
	}
	if p.ViolationsExitCode < 0 || p.ViolationsExitCode > 255 {
		return fmt.Errorf("violations_exit_code must be between 0 and 255: %d", p.ViolationsExitCode)
	}
	return nil
}

// ValidateAnalysesConfig checks that the analysis lists are usable.
func ValidateAnalysesConfig(a *Analyses) error {
	if a == nil {
		return fmt.Errorf("analyses configuration is nil")
	}
	if len(a.Choices) == 0 {
		return fmt.Errorf("at least one checked analysis must be listed in choices")
	}
	if len(a.Baselines) == 0 {
		return fmt.Errorf("at least one baseline analysis must be listed in baselines")
	}
	if !slices.Contains(a.Baselines, a.DefaultBaseline) {
		return fmt.Errorf("default_baseline %q is not listed in baselines", a.DefaultBaseline)
	}
	return nil
}

// ValidateBatchConfig checks the batch directive and applies environment overrides.
func ValidateBatchConfig(b *Batch) error {
	if b == nil {
		return fmt.Errorf("batch configuration is nil")
	}
	if b.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative: %d", b.Jobs)
	}
	if err := updateFolder(&b.Workspace, envWorkspace, os.TempDir()); err != nil {
		return fmt.Errorf("failed to update workspace folder: %w", err)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validatePrefix rejects prefixes that cannot form a "<prefix>-<digits>" file name.
func validatePrefix(prefix, name string) error {
	if prefix == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if strings.ContainsAny(prefix, `/\*?[`) {
		return fmt.Errorf("%s %q must be a plain file name prefix", name, prefix)
	}
	return nil
}

// updateFolder updates a folder path from an environment variable or sets a default value.
func updateFolder(folder *string, envVar, defaultFolder string) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = defaultFolder
	}

	expandedPath, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expandedPath

	if err := files.CreateFolderIfNotExists(expandedPath); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", expandedPath, err)
	}
	return nil
}
