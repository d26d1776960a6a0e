// Package config loads and validates majordomo configuration.
// Configuration lives in .majordomo/config.yaml; environment variables
// override the file for credentials and provider selection.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all majordomo configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration (planner, classifier, batcher)
	LLM LLMConfig `yaml:"llm"`

	// Guard chain configuration
	Guard GuardConfig `yaml:"guard"`

	// Low-signal classifier configuration
	Classifier ClassifierConfig `yaml:"classifier"`

	// Plan execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// WebSocket streaming settings
	Stream StreamConfig `yaml:"stream"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the LLM provider used by the planner and classifier.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini, mock
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	MaxParallel int     `yaml:"max_parallel"` // batcher concurrency budget
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggingConfig configures the category logging system.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "majordomo",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Timeout:     "120s",
			MaxParallel: 4,
			Temperature: 0.2,
			MaxTokens:   2048,
		},

		Guard:      DefaultGuardConfig(),
		Classifier: DefaultClassifierConfig(),
		Execution:  DefaultExecutionConfig(),
		Stream:     DefaultStreamConfig(),

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Missing file returns defaults; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// LLM API key from environment (check in priority order)
	if key := os.Getenv("MAJORDOMO_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if provider := os.Getenv("MAJORDOMO_LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("MAJORDOMO_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("MAJORDOMO_LISTEN_ADDR"); addr != "" {
		c.Stream.ListenAddr = addr
	}
}

// Validate checks config invariants that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.LLM.MaxParallel < 1 {
		return fmt.Errorf("llm.max_parallel must be >= 1, got %d", c.LLM.MaxParallel)
	}
	if c.Execution.MaxParallel < 1 {
		return fmt.Errorf("execution.max_parallel must be >= 1, got %d", c.Execution.MaxParallel)
	}
	if c.Guard.ShortTokenLimit < 1 {
		return fmt.Errorf("guard.short_token_limit must be >= 1, got %d", c.Guard.ShortTokenLimit)
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ConfigPath returns the canonical config path under a workspace.
func ConfigPath(workspace string) string {
	return filepath.Join(workspace, ".majordomo", "config.yaml")
}
