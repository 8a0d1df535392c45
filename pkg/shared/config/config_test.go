package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigOverridesDefaults(t *testing.T) {
	logDir := t.TempDir()
	path := writeConfig(t, `
logger:
  level: debug
  json_format: true
pipeline:
  log_dir: `+logDir+`
  checker: ./ng_check_aa.py
  time_limit: 5s
  violations_exit_code: 3
programs:
  mysqld:
    run_args: "--thread_stack=8388608"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, GetBoolValue(cfg, "Logger.JSONFormat", false))
	assert.True(t, GetBoolValue(cfg, "Logger.DisableTime", true))
	assert.Equal(t, logDir, GetLogDir(cfg))
	assert.Equal(t, "pts", cfg.Pipeline.LogPrefix)
	assert.Equal(t, "ng_hook_mem.py", cfg.Pipeline.Instrumenter)
	assert.Equal(t, "./ng_check_aa.py", cfg.Pipeline.Checker)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.TimeLimit)
	assert.Equal(t, 3, cfg.Pipeline.ViolationsExitCode)
	assert.Equal(t, "--thread_stack=8388608", GetProgram(cfg, "mysqld").RunArgs)
	assert.Equal(t, Program{}, GetProgram(cfg, "httpd"))
	assert.True(t, IsKnownAnalysis(cfg, "anders-aa"))
	assert.False(t, IsKnownAnalysis(cfg, "steens-aa"))
	assert.True(t, IsKnownBaseline(cfg, "basicaa"))
	assert.False(t, IsKnownBaseline(cfg, "ds-aa"))
}

func TestLogDirEnvironmentOverride(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "from-env")
	t.Setenv(envLogDir, envDir)

	cfg, err := LoadConfig(writeConfig(t, "pipeline:\n  log_dir: /nonexistent-should-not-be-used\n"))
	require.NoError(t, err)
	assert.Equal(t, envDir, GetLogDir(cfg))
	assert.DirExists(t, envDir)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "negative time limit",
			mutate:  func(cfg *Config) { cfg.Pipeline.TimeLimit = -time.Second },
			wantErr: "YAML global config: pipeline directive is invalid: invalid duration for time_limit: -1s cannot be negative",
		},
		{
			name:    "empty checker",
			mutate:  func(cfg *Config) { cfg.Pipeline.Checker = " " },
			wantErr: "YAML global config: pipeline directive is invalid: checker command must not be empty",
		},
		{
			name:    "glob characters in prefix",
			mutate:  func(cfg *Config) { cfg.Pipeline.LogPrefix = "pts*" },
			wantErr: `YAML global config: pipeline directive is invalid: log_prefix "pts*" must be a plain file name prefix`,
		},
		{
			name:    "default baseline not listed",
			mutate:  func(cfg *Config) { cfg.Analyses.DefaultBaseline = "anders-aa" },
			wantErr: `YAML global config: analyses directive is invalid: default_baseline "anders-aa" is not listed in baselines`,
		},
		{
			name:    "negative jobs",
			mutate:  func(cfg *Config) { cfg.Batch.Jobs = -1 },
			wantErr: "YAML global config: batch directive is invalid: jobs must not be negative: -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Pipeline.LogDir = t.TempDir()
			cfg.Batch.Workspace = t.TempDir()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestSetThen(t *testing.T) {
	assert.Equal(t, "pts", SetThen("", "pts"))
	assert.Equal(t, "trace", SetThen("trace", "pts"))
	assert.Equal(t, 4, SetThen(0, 4))
}
