package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigFile is read when no --config flag is given and the file exists.
const DefaultConfigFile = "config.yml"

type Config struct {
	Logger   Logger             `yaml:"logger"`
	Pipeline Pipeline           `yaml:"pipeline"`
	Analyses Analyses           `yaml:"analyses"`
	Programs map[string]Program `yaml:"programs"`
	Batch    Batch              `yaml:"batch"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Pipeline holds the external collaborators and the log naming convention of an offline run.
type Pipeline struct {
	LogDir       string        `yaml:"log_dir"`
	LogPrefix    string        `yaml:"log_prefix"`
	ReportPrefix string        `yaml:"report_prefix"`
	Instrumenter string        `yaml:"instrumenter"`
	Checker      string        `yaml:"checker"`
	TimeLimit    time.Duration `yaml:"time_limit"`
	// ViolationsExitCode is the checker exit code meaning "missing aliases detected". Zero disables it.
	ViolationsExitCode int `yaml:"violations_exit_code"`
}

type Analyses struct {
	Choices         []string `yaml:"choices"`
	Baselines       []string `yaml:"baselines"`
	DefaultBaseline string   `yaml:"default_baseline"`
}

// Program is one row of the program-name to flag-set table.
type Program struct {
	InstrumentArgs string `yaml:"instrument_args"`
	RunArgs        string `yaml:"run_args"`
}

type Batch struct {
	Jobs      int    `yaml:"jobs"`
	Workspace string `yaml:"workspace"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// NewConfig reads the YAML file at configPath on top of the defaults.
func NewConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := LoadYAML(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig resolves the configuration used by every command.
// An empty path falls back to DefaultConfigFile when present and to the defaults otherwise.
func LoadConfig(configPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch {
	case configPath != "":
		cfg, err = NewConfig(configPath)
	case ValidateConfigPath(DefaultConfigFile) == nil:
		cfg, err = NewConfig(DefaultConfigFile)
	default:
		cfg = DefaultConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
