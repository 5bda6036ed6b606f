// Package config loads claudepipe CLI settings: built-in defaults, then a
// YAML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so "30s"-style values work in both YAML and
// environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the CLI configuration. Later layers win: defaults, file, env.
type Config struct {
	CLIPath       string   `yaml:"cli_path" env:"CLAUDEPIPE_CLI_PATH"`
	Model         string   `yaml:"model" env:"CLAUDEPIPE_MODEL"`
	FallbackModel string   `yaml:"fallback_model" env:"CLAUDEPIPE_FALLBACK_MODEL"`
	SystemPrompt  string   `yaml:"system_prompt" env:"CLAUDEPIPE_SYSTEM_PROMPT"`
	Timeout       Duration `yaml:"timeout" env:"CLAUDEPIPE_TIMEOUT"`
	SessionPath   string   `yaml:"session_path" env:"CLAUDEPIPE_SESSION_PATH"`
	MaxHistory    int      `yaml:"max_history" env:"CLAUDEPIPE_MAX_HISTORY"`
	LogLevel      string   `yaml:"log_level" env:"CLAUDEPIPE_LOG_LEVEL"`

	AllowedTools    []string `yaml:"allowed_tools" env:"CLAUDEPIPE_ALLOWED_TOOLS" envSeparator:","`
	DisallowedTools []string `yaml:"disallowed_tools" env:"CLAUDEPIPE_DISALLOWED_TOOLS" envSeparator:","`

	RequestsPerMinute int `yaml:"requests_per_minute" env:"CLAUDEPIPE_REQUESTS_PER_MINUTE"`
	RequestsPerHour   int `yaml:"requests_per_hour" env:"CLAUDEPIPE_REQUESTS_PER_HOUR"`
	MaxRetries        int `yaml:"max_retries" env:"CLAUDEPIPE_MAX_RETRIES"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CLIPath:           "claude",
		Timeout:           Duration(5 * time.Minute),
		MaxHistory:        100,
		LogLevel:          "warn",
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		MaxRetries:        3,
	}
}

// DefaultPath returns the default config file location,
// ~/.config/claudepipe/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "claudepipe", "config.yaml")
}

// Load builds the configuration. The file at path is optional unless the
// caller named it explicitly; environment variables override file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err) && !explicit:
			// No default file is fine, defaults and env apply.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
