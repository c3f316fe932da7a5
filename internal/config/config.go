// Package config loads agent configuration from YAML with environment
// overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dataworks configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Control loop budgets
	Execution ExecutionConfig `yaml:"execution"`

	// Sandbox for file and shell tools
	Sandbox SandboxConfig `yaml:"sandbox"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Run persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the decision backend.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ExecutionConfig bounds a task run.
type ExecutionConfig struct {
	MaxIterations      int    `yaml:"max_iterations"`
	RunTimeout         string `yaml:"run_timeout"`
	DecisionRetries    int    `yaml:"decision_retries"`
	RepeatFailureLimit int    `yaml:"repeat_failure_limit"`
}

// SandboxConfig sets the directory tree the tools may touch.
type SandboxConfig struct {
	Root string `yaml:"root"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  "120s",
		},
		Execution: ExecutionConfig{
			MaxIterations:      25,
			RunTimeout:         "10m",
			DecisionRetries:    2,
			RepeatFailureLimit: 2,
		},
		Sandbox: SandboxConfig{
			Root: "/data",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Store: StoreConfig{
			Path: "data/runs.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables win over file values either way.
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
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	// Credentials are expected from the environment in deployments.
	if key := os.Getenv("AIPROXY_TOKEN"); key != "" {
		c.LLM.Provider = "openai"
		c.LLM.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.Provider = "openai"
		c.LLM.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.Provider = "gemini"
		c.LLM.APIKey = key
	}

	if model := os.Getenv("DATAWORKS_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("DATAWORKS_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if root := os.Getenv("DATAWORKS_SANDBOX"); root != "" {
		c.Sandbox.Root = root
	}
	if addr := os.Getenv("DATAWORKS_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("DATAWORKS_DB"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("DATAWORKS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetLLMTimeout parses the LLM timeout with a sane fallback.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetRunTimeout parses the run timeout with a sane fallback.
func (c *Config) GetRunTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.RunTimeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	if c.Execution.MaxIterations <= 0 {
		return fmt.Errorf("execution.max_iterations must be positive, got %d", c.Execution.MaxIterations)
	}
	if _, err := time.ParseDuration(c.Execution.RunTimeout); err != nil {
		return fmt.Errorf("invalid execution.run_timeout: %w", err)
	}
	if c.Sandbox.Root == "" {
		return fmt.Errorf("sandbox.root is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
