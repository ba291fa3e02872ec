package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the indexer's full configuration: where to read source from,
// where to write knowledge artifacts, and how the execution engine should
// behave.
type Config struct {
	SourceRoot      string `yaml:"source_root"`
	OutputRoot      string `yaml:"output_root"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	Execution ExecutionConfig `yaml:"execution"`
	Handlers  HandlersConfig  `yaml:"handlers"`
	Log       LogConfig       `yaml:"log"`
}

// ExecutionConfig controls the Execution Engine's worker pool and failure
// policy (spec.md §4.5, §5).
type ExecutionConfig struct {
	MaxConcurrentOperations int           `yaml:"max_concurrent_operations"`
	ContinueOnFileErrors    bool          `yaml:"continue_on_file_errors"`
	FileTaskTimeout         time.Duration `yaml:"file_task_timeout"`
	DirectoryTaskTimeout    time.Duration `yaml:"directory_task_timeout"`
}

// HandlersConfig selects which handlers the registry activates for a run
// (spec.md §6 trigger surface).
type HandlersConfig struct {
	EnableProjectIndexing      bool `yaml:"enable_project_indexing"`
	EnableVendoredRepoIndexing bool `yaml:"enable_vendored_repo_indexing"`
}

// LogConfig controls the component-scoped slog output.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{
			MaxConcurrentOperations: 8,
			ContinueOnFileErrors:    true,
			FileTaskTimeout:         60 * time.Second,
			DirectoryTaskTimeout:    2 * time.Minute,
		},
		Handlers: HandlersConfig{
			EnableProjectIndexing:      true,
			EnableVendoredRepoIndexing: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function. This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override the config file.
	if apiKey := getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.AnthropicAPIKey = apiKey
	}
	if sourceRoot := getenv("KB_INDEXER_SOURCE_ROOT"); sourceRoot != "" {
		cfg.SourceRoot = sourceRoot
	}
	if outputRoot := getenv("KB_INDEXER_OUTPUT_ROOT"); outputRoot != "" {
		cfg.OutputRoot = outputRoot
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kb-indexer", "config.yaml")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kb-indexer", "config.yaml")
}
